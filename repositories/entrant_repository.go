package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brdc/darts-league/models"
	"github.com/google/uuid"
)

var ErrEntrantNameConflict = errors.New("entrant name already registered for this tournament")

type EntrantRepository interface {
	Create(ctx context.Context, entrant *models.Entrant) error
	// ListCheckedIn returns checked-in entrants in seed order. Unseeded
	// entrants follow the seeded ones in registration order.
	ListCheckedIn(ctx context.Context, tournamentID int) ([]*models.Entrant, error)
}

type postgresEntrantRepository struct {
	db *sql.DB
}

func NewPostgresEntrantRepository(db *sql.DB) EntrantRepository {
	return &postgresEntrantRepository{db: db}
}

func (r *postgresEntrantRepository) Create(ctx context.Context, e *models.Entrant) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO entrants (id, tournament_id, name, seed, checked_in)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, e.ID, e.TournamentID, e.Name, e.Seed, e.CheckedIn).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEntrantNameConflict
		}
		return fmt.Errorf("failed to create entrant: %w", err)
	}
	return nil
}

func (r *postgresEntrantRepository) ListCheckedIn(ctx context.Context, tournamentID int) ([]*models.Entrant, error) {
	query := `
		SELECT id, tournament_id, name, seed, checked_in, created_at
		FROM entrants
		WHERE tournament_id = $1 AND checked_in
		ORDER BY seed ASC NULLS LAST, created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entrants of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entrants := make([]*models.Entrant, 0)
	for rows.Next() {
		e := &models.Entrant{}
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.Name, &e.Seed, &e.CheckedIn, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entrant: %w", err)
		}
		entrants = append(entrants, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entrants, nil
}
