package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/brdc/darts-league/brackets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBracket(t *testing.T, tournamentID int) *brackets.Bracket {
	t.Helper()
	b, err := brackets.NewDoubleEliminationGenerator().GenerateBracket(context.Background(), brackets.GenerateBracketParams{
		TournamentID: tournamentID,
		Entrants: []brackets.Entrant{
			{ID: "a", Name: "Anna"}, {ID: "b", Name: "Bea"}, {ID: "c", Name: "Cal"}, {ID: "d", Name: "Dev"},
		},
	})
	require.NoError(t, err)
	return b
}

// exerciseBracketRepository runs the behaviour every BracketRepository must
// share. Integration tests reuse it against real stores.
func exerciseBracketRepository(t *testing.T, repo BracketRepository, tournamentID int) {
	ctx := context.Background()
	b := testBracket(t, tournamentID)

	_, err := repo.GetByTournamentID(ctx, tournamentID)
	require.ErrorIs(t, err, ErrBracketNotFound)

	hookErr := errors.New("status update failed")
	err = repo.Create(ctx, b, func(context.Context, SQLExecutor) error { return hookErr })
	require.ErrorIs(t, err, hookErr)
	_, err = repo.GetByTournamentID(ctx, tournamentID)
	require.ErrorIs(t, err, ErrBracketNotFound, "failed hook must undo the insert")

	hookRan := false
	require.NoError(t, repo.Create(ctx, b, func(context.Context, SQLExecutor) error {
		hookRan = true
		return nil
	}))
	assert.True(t, hookRan)
	assert.ErrorIs(t, repo.Create(ctx, testBracket(t, tournamentID), nil), ErrBracketExists)

	got, err := repo.GetByTournamentID(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	updated, err := repo.Update(ctx, tournamentID, func(b *brackets.Bracket) error {
		_, err := brackets.Advance(b, "WR1M1", "a", "d")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, brackets.MatchStatusCompleted, updated.Match("WR1M1").Status)

	got, err = repo.GetByTournamentID(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	boom := errors.New("rejected")
	_, err = repo.Update(ctx, tournamentID, func(b *brackets.Bracket) error {
		b.Match("WR1M2").Status = brackets.MatchStatusCompleted
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = repo.GetByTournamentID(ctx, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, brackets.MatchStatusReady, got.Match("WR1M2").Status)

	_, err = repo.Update(ctx, tournamentID+1000, func(*brackets.Bracket) error { return nil })
	assert.ErrorIs(t, err, ErrBracketNotFound)
}

func TestMemoryBracketRepository(t *testing.T) {
	exerciseBracketRepository(t, NewMemoryBracketRepository(), 1)
}

func TestMemoryBracketRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryBracketRepository()
	ctx := context.Background()
	b := testBracket(t, 2)
	require.NoError(t, repo.Create(ctx, b, nil))

	b.Match("WR1M1").Status = brackets.MatchStatusCompleted
	got, err := repo.GetByTournamentID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, brackets.MatchStatusReady, got.Match("WR1M1").Status)

	got.Match("WR1M1").Status = brackets.MatchStatusInProgress
	again, err := repo.GetByTournamentID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, brackets.MatchStatusReady, again.Match("WR1M1").Status)
}

func TestMemoryBracketRepository_ConcurrentUpdatesSerialize(t *testing.T) {
	repo := NewMemoryBracketRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testBracket(t, 3), nil))

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := repo.Update(ctx, 3, func(b *brackets.Bracket) error {
				_, err := brackets.Advance(b, "WR1M1", "a", "d")
				return err
			})
			results <- err
		}()
	}

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], brackets.ErrDuplicateAdvancement)
}

func TestMemoryBracketRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryBracketRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.Update(ctx, 1, func(*brackets.Bracket) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
