package brackets

import (
	"context"
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type GenerateBracketParams struct {
	BracketID    string
	TournamentID int
	// Entrants in seed order, strongest first.
	Entrants []Entrant
	// Shuffle discards the given order and seeds at random.
	Shuffle bool
	Rand    *rand.Rand
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error)

	GetName() string
}

type DoubleEliminationGenerator struct {
}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds the full double elimination topology for the
// entrants. Byes go to the top seeds and are stored as completed winners
// round 1 matches with no loser; their winners are already seated in round 2.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Bracket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entrants, err := prepareEntrants(params)
	if err != nil {
		return nil, err
	}

	n := len(entrants)
	size := nextPowerOfTwo(n)
	winnersRounds := bits.TrailingZeros(uint(size))
	losersRounds := 0
	if winnersRounds > 1 {
		losersRounds = (winnersRounds - 1) * 2
	}

	bracketID := params.BracketID
	if bracketID == "" {
		bracketID = uuid.NewString()
	}

	b := &Bracket{
		ID:            bracketID,
		TournamentID:  params.TournamentID,
		Entrants:      entrants,
		BracketSize:   size,
		ByeCount:      size - n,
		WinnersRounds: winnersRounds,
		LosersRounds:  losersRounds,
	}

	for r := 1; r <= winnersRounds; r++ {
		for p := 0; p < size>>r; p++ {
			b.Winners = append(b.Winners, &Match{
				ID:       winnersMatchID(r, p),
				Section:  SectionWinners,
				Round:    r,
				Position: p,
				Status:   MatchStatusPending,
			})
		}
	}
	for k := 1; k <= losersRounds; k++ {
		for p := 0; p < losersRoundMatches(size, k); p++ {
			b.Losers = append(b.Losers, &Match{
				ID:        losersMatchID(k, p),
				Section:   SectionLosers,
				Round:     k,
				Position:  p,
				RoundType: losersRoundType(k),
				Status:    MatchStatusPending,
			})
		}
	}
	b.GrandFinals = []*Match{{
		ID:      grandFinalID,
		Section: SectionGrandFinals,
		Round:   1,
		Status:  MatchStatusPending,
	}}

	if err := b.link(); err != nil {
		return nil, err
	}
	if err := b.verifyCapacity(); err != nil {
		return nil, err
	}
	if err := b.seed(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("generated bracket failed validation: %w", err)
	}
	return b, nil
}

func prepareEntrants(params GenerateBracketParams) ([]Entrant, error) {
	if len(params.Entrants) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughEntrants, len(params.Entrants))
	}
	seen := make(map[string]struct{}, len(params.Entrants))
	for _, e := range params.Entrants {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidEntrants)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidEntrants, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	entrants := make([]Entrant, len(params.Entrants))
	copy(entrants, params.Entrants)
	if params.Shuffle {
		rng := params.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		shuffleEntrants(entrants, rng)
	}
	return entrants, nil
}

func (b *Bracket) link() error {
	for _, m := range b.Winners {
		w, err := b.winnerSlot(m)
		if err != nil {
			return err
		}
		l, err := b.loserSlot(m)
		if err != nil {
			return err
		}
		m.WinnerTo, m.LoserTo = w, l
	}
	for _, m := range b.Losers {
		w, err := b.winnerSlot(m)
		if err != nil {
			return err
		}
		m.WinnerTo = w
	}
	return nil
}

// seed fills winners round 1 in standard seed order and resolves the byes.
func (b *Bracket) seed() error {
	order := seedOrder(b.BracketSize)
	first := b.Round(SectionWinners, 1)
	for i, m := range first {
		if e := b.seedEntrant(order[2*i]); e != nil {
			m.Team1ID = e
		} else {
			m.Team1Vacant = true
		}
		if e := b.seedEntrant(order[2*i+1]); e != nil {
			m.Team2ID = e
		} else {
			m.Team2Vacant = true
		}
	}

	a := &advancer{b: b}
	for _, m := range first {
		if err := a.settle(m); err != nil {
			return fmt.Errorf("failed to resolve round 1 match %s: %w", m.ID, err)
		}
	}
	return nil
}

func (b *Bracket) seedEntrant(seed int) *string {
	if seed > len(b.Entrants) {
		return nil
	}
	id := b.Entrants[seed-1].ID
	return &id
}
