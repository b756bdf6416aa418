package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brdc/darts-league/models"
)

var (
	ErrMatchResultNotFound = errors.New("match result not found")
	ErrMatchResultExists   = errors.New("match result already recorded")
)

type MatchResultRepository interface {
	Create(ctx context.Context, result *models.MatchResult) error
	GetByMatch(ctx context.Context, tournamentID int, matchID string) (*models.MatchResult, error)
}

type postgresMatchResultRepository struct {
	db *sql.DB
}

func NewPostgresMatchResultRepository(db *sql.DB) MatchResultRepository {
	return &postgresMatchResultRepository{db: db}
}

func (r *postgresMatchResultRepository) Create(ctx context.Context, m *models.MatchResult) error {
	query := `
		INSERT INTO match_results (tournament_id, match_id, winner_id, loser_id, team1_legs, team2_legs, submitted_by, game_stats, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		m.TournamentID, m.MatchID, m.WinnerID, m.LoserID, m.Team1Legs, m.Team2Legs, m.SubmittedBy, nullableJSON(m.GameStats), []byte(m.Outcome),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMatchResultExists
		}
		return fmt.Errorf("failed to record result of match %s: %w", m.MatchID, err)
	}
	return nil
}

func (r *postgresMatchResultRepository) GetByMatch(ctx context.Context, tournamentID int, matchID string) (*models.MatchResult, error) {
	query := `
		SELECT id, tournament_id, match_id, winner_id, loser_id, team1_legs, team2_legs, submitted_by, game_stats, outcome, created_at
		FROM match_results
		WHERE tournament_id = $1 AND match_id = $2`

	m := &models.MatchResult{}
	var outcome, gameStats []byte
	err := r.db.QueryRowContext(ctx, query, tournamentID, matchID).Scan(
		&m.ID, &m.TournamentID, &m.MatchID, &m.WinnerID, &m.LoserID,
		&m.Team1Legs, &m.Team2Legs, &m.SubmittedBy, &gameStats, &outcome, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchResultNotFound
		}
		return nil, fmt.Errorf("failed to get result of match %s: %w", matchID, err)
	}
	m.Outcome = outcome
	if len(gameStats) > 0 {
		m.GameStats = gameStats
	}
	return m, nil
}

// nullableJSON sends absent JSON as NULL rather than an empty jsonb value.
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
