package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brdc/darts-league/db"
	"github.com/brdc/darts-league/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postgresForTest(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	conn, err := db.Connect(dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn))
	return conn
}

func createTestTournament(t *testing.T, repo TournamentRepository) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		Name:      fmt.Sprintf("League night %d", time.Now().UnixNano()),
		StartDate: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), tournament))
	return tournament
}

func TestPostgresRepositories_Integration(t *testing.T) {
	conn := postgresForTest(t)
	ctx := context.Background()

	tournaments := NewPostgresTournamentRepository(conn)
	tournament := createTestTournament(t, tournaments)

	t.Run("tournament lifecycle", func(t *testing.T) {
		require.NoError(t, tournaments.UpdateStatus(ctx, nil, tournament.ID, models.StatusActive))
		require.NoError(t, tournaments.SetChampion(ctx, nil, tournament.ID, "champ"))

		got, err := tournaments.GetByID(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.ChampionEntrantID)
		assert.Equal(t, "champ", *got.ChampionEntrantID)

		_, err = tournaments.GetByID(ctx, -1)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("entrants in seed order", func(t *testing.T) {
		entrants := NewPostgresEntrantRepository(conn)
		two, one := 2, 1
		for _, e := range []*models.Entrant{
			{TournamentID: tournament.ID, Name: "Unseeded", CheckedIn: true},
			{TournamentID: tournament.ID, Name: "Second", Seed: &two, CheckedIn: true},
			{TournamentID: tournament.ID, Name: "Away", CheckedIn: false},
			{TournamentID: tournament.ID, Name: "First", Seed: &one, CheckedIn: true},
		} {
			require.NoError(t, entrants.Create(ctx, e))
			assert.NotEmpty(t, e.ID)
		}
		err := entrants.Create(ctx, &models.Entrant{TournamentID: tournament.ID, Name: "First"})
		assert.ErrorIs(t, err, ErrEntrantNameConflict)

		list, err := entrants.ListCheckedIn(ctx, tournament.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"First", "Second", "Unseeded"}, []string{list[0].Name, list[1].Name, list[2].Name})
	})

	t.Run("brackets", func(t *testing.T) {
		exerciseBracketRepository(t, NewPostgresBracketRepository(conn), tournament.ID)
	})

	t.Run("bracket create shares the status transaction", func(t *testing.T) {
		repo := NewPostgresBracketRepository(conn)
		fresh := createTestTournament(t, tournaments)
		moveThenFail := func(ctx context.Context, exec SQLExecutor) error {
			require.NotNil(t, exec)
			require.NoError(t, tournaments.UpdateStatus(ctx, exec, fresh.ID, models.StatusActive))
			return errors.New("late failure")
		}
		require.Error(t, repo.Create(ctx, testBracket(t, fresh.ID), moveThenFail))

		got, err := tournaments.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRegistration, got.Status)
		_, err = repo.GetByTournamentID(ctx, fresh.ID)
		assert.ErrorIs(t, err, ErrBracketNotFound)

		require.NoError(t, repo.Create(ctx, testBracket(t, fresh.ID), func(ctx context.Context, exec SQLExecutor) error {
			return tournaments.UpdateStatus(ctx, exec, fresh.ID, models.StatusActive)
		}))
		got, err = tournaments.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})

	t.Run("match results", func(t *testing.T) {
		results := NewPostgresMatchResultRepository(conn)
		rec := &models.MatchResult{
			TournamentID: tournament.ID,
			MatchID:      "WR1M1",
			WinnerID:     "a",
			LoserID:      "d",
			GameStats:    []byte(`{"a":{"darts":48}}`),
			Outcome:      []byte(`{"match_id":"WR1M1"}`),
		}
		require.NoError(t, results.Create(ctx, rec))
		assert.ErrorIs(t, results.Create(ctx, rec), ErrMatchResultExists)

		got, err := results.GetByMatch(ctx, tournament.ID, "WR1M1")
		require.NoError(t, err)
		assert.Equal(t, "a", got.WinnerID)
		assert.JSONEq(t, `{"match_id":"WR1M1"}`, string(got.Outcome))
		assert.JSONEq(t, `{"a":{"darts":48}}`, string(got.GameStats))

		bare := &models.MatchResult{TournamentID: tournament.ID, MatchID: "WR1M2", WinnerID: "b", LoserID: "c", Outcome: []byte(`{}`)}
		require.NoError(t, results.Create(ctx, bare))
		got, err = results.GetByMatch(ctx, tournament.ID, "WR1M2")
		require.NoError(t, err)
		assert.Nil(t, got.GameStats)

		_, err = results.GetByMatch(ctx, tournament.ID, "WR1M3")
		assert.ErrorIs(t, err, ErrMatchResultNotFound)
	})
}

func TestMongoBracketRepository_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, uri, 5*time.Second)
	require.NoError(t, err)

	database := client.Database(fmt.Sprintf("darts_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	exerciseBracketRepository(t, NewMongoBracketRepository(database), 5)
}
