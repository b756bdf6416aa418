package repositories

import (
	"context"
	"sync"

	"github.com/brdc/darts-league/brackets"
)

// MemoryBracketRepository keeps brackets in process. Stored and returned
// brackets are copies, so callers cannot mutate the store behind its back.
type MemoryBracketRepository struct {
	mu       sync.Mutex
	brackets map[int]*brackets.Bracket
}

var _ BracketRepository = (*MemoryBracketRepository)(nil)

func NewMemoryBracketRepository() *MemoryBracketRepository {
	return &MemoryBracketRepository{brackets: make(map[int]*brackets.Bracket)}
}

func (r *MemoryBracketRepository) Create(ctx context.Context, b *brackets.Bracket, then BracketCreateHook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.brackets[b.TournamentID]; ok {
		return ErrBracketExists
	}
	if then != nil {
		if err := then(ctx, nil); err != nil {
			return err
		}
	}
	r.brackets[b.TournamentID] = b.Clone()
	return nil
}

func (r *MemoryBracketRepository) GetByTournamentID(_ context.Context, tournamentID int) (*brackets.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return nil, ErrBracketNotFound
	}
	return b.Clone(), nil
}

func (r *MemoryBracketRepository) Update(ctx context.Context, tournamentID int, mutate BracketMutator) (*brackets.Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.brackets[tournamentID]
	if !ok {
		return nil, ErrBracketNotFound
	}
	work := stored.Clone()
	if err := mutate(work); err != nil {
		return nil, err
	}
	r.brackets[tournamentID] = work.Clone()
	return work, nil
}
