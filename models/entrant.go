package models

import "time"

// Entrant is a roster row: a player or doubles pair registered for a
// tournament. Only checked-in entrants are seeded into a bracket.
type Entrant struct {
	ID           string    `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Seed         *int      `json:"seed,omitempty" db:"seed"`
	CheckedIn    bool      `json:"checked_in" db:"checked_in"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
