package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/brdc/darts-league/brackets"
)

var (
	ErrBracketNotFound       = errors.New("bracket not found")
	ErrBracketExists         = errors.New("bracket already exists for this tournament")
	ErrBracketUpdateConflict = errors.New("bracket was modified concurrently")
)

// BracketMutator changes a loaded bracket in place. Returning an error aborts
// the update and nothing is written. A mutator may run more than once for a
// single Update when the store retries on a concurrent write.
type BracketMutator func(b *brackets.Bracket) error

// BracketCreateHook runs as part of Create.
// exec is the inserting transaction on stores backed by Postgres and nil on
// the others. An error undoes the insert and is returned from Create.
type BracketCreateHook func(ctx context.Context, exec SQLExecutor) error

// BracketRepository stores one bracket document per tournament. Update is the
// only way to change a stored bracket and serializes concurrent writers.
type BracketRepository interface {
	// Create inserts a new bracket. then may be nil.
	Create(ctx context.Context, b *brackets.Bracket, then BracketCreateHook) error
	GetByTournamentID(ctx context.Context, tournamentID int) (*brackets.Bracket, error)
	Update(ctx context.Context, tournamentID int, mutate BracketMutator) (*brackets.Bracket, error)
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

// Create inserts the bracket and runs then inside one transaction.
func (r *postgresBracketRepository) Create(ctx context.Context, b *brackets.Bracket, then BracketCreateHook) (err error) {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bracket %s: %w", b.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, err)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit bracket for tournament %d: %w", b.TournamentID, cErr)
		}
	}()

	query := `
		INSERT INTO brackets (tournament_id, bracket_id, document)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id) DO NOTHING`

	result, err := tx.ExecContext(ctx, query, b.TournamentID, b.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to insert bracket for tournament %d: %w", b.TournamentID, err)
	}
	if err = checkAffectedRows(result, ErrBracketExists); err != nil {
		return err
	}
	if then != nil {
		err = then(ctx, tx)
	}
	return err
}

func (r *postgresBracketRepository) GetByTournamentID(ctx context.Context, tournamentID int) (*brackets.Bracket, error) {
	return r.load(ctx, r.db, tournamentID, false)
}

// Update locks the bracket row for the duration of the transaction, so
// concurrent result submissions for one tournament are applied one at a time.
func (r *postgresBracketRepository) Update(ctx context.Context, tournamentID int, mutate BracketMutator) (updated *brackets.Bracket, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, err)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			updated = nil
			err = fmt.Errorf("failed to commit bracket update for tournament %d: %w", tournamentID, cErr)
		}
	}()

	b, err := r.load(ctx, tx, tournamentID, true)
	if err != nil {
		return nil, err
	}
	if err = mutate(b); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket %s: %w", b.ID, err)
	}
	query := `
		UPDATE brackets
		SET document = $1, version = version + 1, updated_at = NOW()
		WHERE tournament_id = $2`
	result, err := tx.ExecContext(ctx, query, doc, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update bracket for tournament %d: %w", tournamentID, err)
	}
	if err = checkAffectedRows(result, ErrBracketNotFound); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresBracketRepository) load(ctx context.Context, exec SQLExecutor, tournamentID int, forUpdate bool) (*brackets.Bracket, error) {
	query := `SELECT document FROM brackets WHERE tournament_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var doc []byte
	if err := exec.QueryRowContext(ctx, query, tournamentID).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to load bracket for tournament %d: %w", tournamentID, err)
	}

	b := &brackets.Bracket{}
	if err := json.Unmarshal(doc, b); err != nil {
		return nil, fmt.Errorf("failed to decode bracket for tournament %d: %w", tournamentID, err)
	}
	return b, nil
}
