package models

import (
	"encoding/json"
	"time"
)

// MatchResult is the audit record of one accepted result submission. Outcome
// holds the advancement outcome as returned to the submitter, so a retried
// submission can be answered with the same payload.
type MatchResult struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	MatchID      string `json:"match_id" db:"match_id"`
	WinnerID     string `json:"winner_id" db:"winner_id"`
	LoserID      string `json:"loser_id" db:"loser_id"`
	Team1Legs    *int   `json:"team1_legs,omitempty" db:"team1_legs"`
	Team2Legs    *int   `json:"team2_legs,omitempty" db:"team2_legs"`
	SubmittedBy  *int   `json:"submitted_by,omitempty" db:"submitted_by"`
	// GameStats is stored exactly as the scorer sent it.
	GameStats json.RawMessage `json:"game_stats,omitempty" db:"game_stats"`
	Outcome   json.RawMessage `json:"outcome" db:"outcome"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
