package brackets

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// region sizing tests

func TestGenerateBracket_Sizing(t *testing.T) {
	tests := []struct {
		entrants      int
		size          int
		byes          int
		winnersRounds int
		losersRounds  int
	}{
		{2, 2, 0, 1, 0},
		{3, 4, 1, 2, 2},
		{4, 4, 0, 2, 2},
		{5, 8, 3, 3, 4},
		{6, 8, 2, 3, 4},
		{8, 8, 0, 3, 4},
		{9, 16, 7, 4, 6},
		{16, 16, 0, 4, 6},
		{17, 32, 15, 5, 8},
		{33, 64, 31, 6, 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d entrants", tt.entrants), func(t *testing.T) {
			b := generate(t, tt.entrants)

			assert.Equal(t, tt.size, b.BracketSize)
			assert.Equal(t, tt.byes, b.ByeCount)
			assert.Equal(t, tt.winnersRounds, b.WinnersRounds)
			assert.Equal(t, tt.losersRounds, b.LosersRounds)

			assert.Len(t, b.Winners, tt.size-1)
			assert.Len(t, b.Losers, tt.size-2)
			assert.Len(t, b.GrandFinals, 1)
			assert.Len(t, b.Matches(), 2*tt.size-2)
			assert.Nil(t, b.ChampionID)
		})
	}
}

func TestGenerateBracket_RoundCountsAndTypes(t *testing.T) {
	b := generate(t, 16)

	for r, want := range map[int]int{1: 8, 2: 4, 3: 2, 4: 1} {
		assert.Len(t, b.Round(SectionWinners, r), want, "winners round %d", r)
	}

	wantLosers := map[int]struct {
		matches int
		kind    RoundType
	}{
		1: {4, RoundTypeConsolidation},
		2: {4, RoundTypeDropout},
		3: {2, RoundTypeConsolidation},
		4: {2, RoundTypeDropout},
		5: {1, RoundTypeConsolidation},
		6: {1, RoundTypeDropout},
	}
	for k, want := range wantLosers {
		round := b.Round(SectionLosers, k)
		require.Len(t, round, want.matches, "losers round %d", k)
		for _, m := range round {
			assert.Equal(t, want.kind, m.RoundType, m.ID)
		}
	}
}

func TestGenerateBracket_EightEntrantsMatchCounts(t *testing.T) {
	b := generate(t, 8)

	assert.Len(t, b.Winners, 4+2+1)
	assert.Len(t, b.Losers, 2+2+1+1)
	assert.Len(t, b.GrandFinals, 1)
	assert.Zero(t, b.ByeCount)
	for _, m := range b.Round(SectionWinners, 1) {
		assert.Equal(t, MatchStatusReady, m.Status, m.ID)
		assert.False(t, m.Bye)
	}
}

// endregion

// region seeding tests

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, seedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, seedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, seedOrder(8))
}

func TestGenerateBracket_SeedsFirstRound(t *testing.T) {
	b := generate(t, 8)

	pairs := [][2]string{{"p1", "p8"}, {"p4", "p5"}, {"p2", "p7"}, {"p3", "p6"}}
	for i, m := range b.Round(SectionWinners, 1) {
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
		assert.Equal(t, pairs[i][0], *m.Team1ID, m.ID)
		assert.Equal(t, pairs[i][1], *m.Team2ID, m.ID)
	}
}

func TestGenerateBracket_SixEntrantsTopSeedsGetByes(t *testing.T) {
	b := generate(t, 6)

	require.Equal(t, 8, b.BracketSize)
	require.Equal(t, 2, b.ByeCount)

	byes := map[string]string{}
	for _, m := range b.Round(SectionWinners, 1) {
		if m.Bye {
			assert.Equal(t, MatchStatusCompleted, m.Status)
			require.NotNil(t, m.WinnerID)
			assert.Nil(t, m.LoserID)
			byes[m.ID] = *m.WinnerID
		}
	}
	assert.Equal(t, map[string]string{"WR1M1": "p1", "WR1M3": "p2"}, byes)

	// Both byes are already waiting in round 2.
	assert.Equal(t, strPtr("p1"), b.Match("WR2M1").Team1ID)
	assert.Equal(t, strPtr("p2"), b.Match("WR2M2").Team1ID)
	assert.Equal(t, MatchStatusPending, b.Match("WR2M1").Status)

	// The byes have no loser, so their losers round 1 seats can never fill.
	assert.True(t, b.Match("LR1M1").Team1Vacant)
	assert.True(t, b.Match("LR1M2").Team1Vacant)
}

func TestGenerateBracket_FiveEntrantsVoidLosersMatch(t *testing.T) {
	b := generate(t, 5)

	// Seeds 2 and 3 both had byes and meet straight away.
	wr2 := b.Match("WR2M2")
	assert.Equal(t, MatchStatusReady, wr2.Status)
	assert.Equal(t, strPtr("p2"), wr2.Team1ID)
	assert.Equal(t, strPtr("p3"), wr2.Team2ID)

	// LR1M2 is fed by two byes and resolves without anyone in it.
	void := b.Match("LR1M2")
	assert.Equal(t, MatchStatusCompleted, void.Status)
	assert.True(t, void.Bye)
	assert.Nil(t, void.WinnerID)
	assert.True(t, b.Match("LR2M2").Team1Vacant)
}

func TestGenerateBracket_ShuffleIsDeterministicWithRand(t *testing.T) {
	params := func() GenerateBracketParams {
		return GenerateBracketParams{
			TournamentID: 1,
			Entrants:     testEntrants(12),
			Shuffle:      true,
			Rand:         rand.New(rand.NewSource(42)),
		}
	}
	g := NewDoubleEliminationGenerator()

	a, err := g.GenerateBracket(context.Background(), params())
	require.NoError(t, err)
	b, err := g.GenerateBracket(context.Background(), params())
	require.NoError(t, err)

	assert.Equal(t, a.Entrants, b.Entrants)
	assert.ElementsMatch(t, testEntrants(12), a.Entrants)
	assert.NotEqual(t, a.ID, b.ID, "ids are generated per bracket")
}

// endregion

// region linking tests

func TestGenerateBracket_LoserRouting(t *testing.T) {
	b := generate(t, 8)

	tests := []struct {
		match    string
		winnerTo *Slot
		loserTo  *Slot
	}{
		{"WR1M1", &Slot{"WR2M1", 1}, &Slot{"LR1M1", 1}},
		{"WR1M2", &Slot{"WR2M1", 2}, &Slot{"LR1M1", 2}},
		{"WR1M4", &Slot{"WR2M2", 2}, &Slot{"LR1M2", 2}},
		{"WR2M1", &Slot{"WR3M1", 1}, &Slot{"LR2M1", 2}},
		{"WR2M2", &Slot{"WR3M1", 2}, &Slot{"LR2M2", 2}},
		{"WR3M1", &Slot{"GF1", 1}, &Slot{"LR4M1", 2}},
		{"LR1M1", &Slot{"LR2M1", 1}, nil},
		{"LR1M2", &Slot{"LR2M2", 1}, nil},
		{"LR2M1", &Slot{"LR3M1", 1}, nil},
		{"LR2M2", &Slot{"LR3M1", 2}, nil},
		{"LR3M1", &Slot{"LR4M1", 1}, nil},
		{"LR4M1", &Slot{"GF1", 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.match, func(t *testing.T) {
			m := b.Match(tt.match)
			require.NotNil(t, m)
			assert.Equal(t, tt.winnerTo, m.WinnerTo)
			assert.Equal(t, tt.loserTo, m.LoserTo)
		})
	}

	gf := b.Match("GF1")
	assert.Nil(t, gf.WinnerTo)
	assert.Nil(t, gf.LoserTo)
}

func TestGenerateBracket_TwoEntrantsGoStraightToGrandFinal(t *testing.T) {
	b := generate(t, 2)

	m := b.Match("WR1M1")
	assert.Equal(t, &Slot{"GF1", 1}, m.WinnerTo)
	assert.Equal(t, &Slot{"GF1", 2}, m.LoserTo)
	assert.Empty(t, b.Losers)
}

func TestGenerateBracket_UniqueCoordinates(t *testing.T) {
	for n := 2; n <= 40; n++ {
		b := generate(t, n)
		seen := map[string]bool{}
		for _, m := range b.Matches() {
			key := fmt.Sprintf("%s/%d/%d", m.Section, m.Round, m.Position)
			require.False(t, seen[key], "n=%d duplicate %s", n, key)
			seen[key] = true
		}
		require.NoError(t, b.Validate(), "n=%d", n)
	}
}

// endregion

// region validation tests

func TestGenerateBracket_RejectsBadRosters(t *testing.T) {
	g := NewDoubleEliminationGenerator()
	ctx := context.Background()

	_, err := g.GenerateBracket(ctx, GenerateBracketParams{Entrants: testEntrants(1)})
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)

	_, err = g.GenerateBracket(ctx, GenerateBracketParams{})
	assert.ErrorIs(t, err, ErrNotEnoughEntrants)

	_, err = g.GenerateBracket(ctx, GenerateBracketParams{Entrants: []Entrant{{ID: "a"}, {ID: "a"}}})
	assert.ErrorIs(t, err, ErrInvalidEntrants)

	_, err = g.GenerateBracket(ctx, GenerateBracketParams{Entrants: []Entrant{{ID: "a"}, {ID: ""}}})
	assert.ErrorIs(t, err, ErrInvalidEntrants)
}

func TestGenerateBracket_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDoubleEliminationGenerator().GenerateBracket(ctx, GenerateBracketParams{Entrants: testEntrants(4)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate_DetectsBrokenLinks(t *testing.T) {
	b := generate(t, 8)
	b.Match("LR2M2").WinnerTo = &Slot{MatchID: "LR3M1", Seat: 1}

	assert.ErrorIs(t, b.Validate(), ErrInvalidBracketTopology)
}

func TestValidate_DetectsCapacityMismatch(t *testing.T) {
	b := generate(t, 8)
	b.Losers = b.Losers[:len(b.Losers)-1]

	assert.ErrorIs(t, b.Validate(), ErrInvalidBracketTopology)
}

func TestGetName(t *testing.T) {
	assert.Equal(t, "DoubleElimination", NewDoubleEliminationGenerator().GetName())
}

// endregion
