package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEntrants(n int) []Entrant {
	out := make([]Entrant, n)
	for i := range out {
		out[i] = Entrant{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1)}
	}
	return out
}

func generate(t *testing.T, n int) *Bracket {
	t.Helper()
	b, err := NewDoubleEliminationGenerator().GenerateBracket(context.Background(), GenerateBracketParams{
		BracketID:    "bracket-test",
		TournamentID: 7,
		Entrants:     testEntrants(n),
	})
	require.NoError(t, err)
	return b
}

// picker decides the result of a playable match.
type picker func(b *Bracket, m *Match) (winner, loser string)

func seedOf(b *Bracket, id string) int {
	for i, e := range b.Entrants {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

// favorites always lets the better seed win.
func favorites(b *Bracket, m *Match) (string, string) {
	if seedOf(b, *m.Team1ID) < seedOf(b, *m.Team2ID) {
		return *m.Team1ID, *m.Team2ID
	}
	return *m.Team2ID, *m.Team1ID
}

// losersSideTakesGame1 plays favorites everywhere except the first grand
// final, which goes to the losers bracket champion.
func losersSideTakesGame1(b *Bracket, m *Match) (string, string) {
	if m.ID == grandFinalID {
		return *m.Team2ID, *m.Team1ID
	}
	return favorites(b, m)
}

func team1Wins(_ *Bracket, m *Match) (string, string) {
	return *m.Team1ID, *m.Team2ID
}

func mustAdvance(t *testing.T, b *Bracket, matchID string, pick picker) *AdvancementResult {
	t.Helper()
	m := b.Match(matchID)
	require.NotNil(t, m, matchID)
	w, l := pick(b, m)
	res, err := Advance(b, matchID, w, l)
	require.NoError(t, err, matchID)
	return res
}

// simulate reports playable matches in bracket order until a champion is
// decided and returns the number of matches actually played.
func simulate(t *testing.T, b *Bracket, pick picker) int {
	t.Helper()
	played := 0
	limit := 4 * len(b.Entrants)
	for !b.Completed() {
		playable := b.Playable()
		require.NotEmpty(t, playable, "bracket stalled without a champion")
		mustAdvance(t, b, playable[0].ID, pick)
		played++
		require.LessOrEqual(t, played, limit)
		require.NoError(t, b.Validate())
	}
	return played
}

// playUntilReady plays favorites until the given match becomes playable.
func playUntilReady(t *testing.T, b *Bracket, matchID string) {
	t.Helper()
	for {
		m := b.Match(matchID)
		require.NotNil(t, m)
		if m.Status == MatchStatusReady {
			return
		}
		var next *Match
		for _, p := range b.Playable() {
			if p.ID != matchID {
				next = p
				break
			}
		}
		require.NotNil(t, next, "no playable match before %s", matchID)
		mustAdvance(t, b, next.ID, favorites)
	}
}

func strPtr(s string) *string { return &s }
