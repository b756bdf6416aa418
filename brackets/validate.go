package brackets

import (
	"fmt"
	"math/bits"
)

// Validate checks the structural invariants of the bracket: sizing, unique
// ids and coordinates, routing links and losers bracket capacity. It does not
// judge reported results.
func (b *Bracket) Validate() error {
	n := len(b.Entrants)
	if n < 2 {
		return fmt.Errorf("%w: %d entrants", ErrInvalidBracketTopology, n)
	}
	size := nextPowerOfTwo(n)
	wr := bits.TrailingZeros(uint(size))
	lr := 0
	if wr > 1 {
		lr = (wr - 1) * 2
	}
	if b.BracketSize != size || b.ByeCount != size-n || b.WinnersRounds != wr || b.LosersRounds != lr {
		return fmt.Errorf("%w: sizing %d/%d/%d/%d does not fit %d entrants",
			ErrInvalidBracketTopology, b.BracketSize, b.ByeCount, b.WinnersRounds, b.LosersRounds, n)
	}

	ids := make(map[string]struct{})
	type coord struct {
		section         Section
		round, position int
	}
	coords := make(map[coord]struct{})
	for _, m := range b.Matches() {
		if _, dup := ids[m.ID]; dup {
			return fmt.Errorf("%w: duplicate match id %s", ErrInvalidBracketTopology, m.ID)
		}
		ids[m.ID] = struct{}{}
		c := coord{m.Section, m.Round, m.Position}
		if _, dup := coords[c]; dup {
			return fmt.Errorf("%w: duplicate coordinates for %s", ErrInvalidBracketTopology, m.ID)
		}
		coords[c] = struct{}{}
	}

	for r := 1; r <= wr; r++ {
		if got := len(b.Round(SectionWinners, r)); got != size>>r {
			return fmt.Errorf("%w: winners round %d has %d matches, want %d", ErrInvalidBracketTopology, r, got, size>>r)
		}
	}
	if len(b.Winners) != size-1 {
		return fmt.Errorf("%w: %d winners matches, want %d", ErrInvalidBracketTopology, len(b.Winners), size-1)
	}
	for _, m := range b.Losers {
		if m.RoundType != losersRoundType(m.Round) {
			return fmt.Errorf("%w: %s has round type %q", ErrInvalidBracketTopology, m.ID, m.RoundType)
		}
	}
	if len(b.GrandFinals) < 1 || len(b.GrandFinals) > 2 {
		return fmt.Errorf("%w: %d grand final matches", ErrInvalidBracketTopology, len(b.GrandFinals))
	}

	for _, m := range append(append([]*Match(nil), b.Winners...), b.Losers...) {
		w, err := b.winnerSlot(m)
		if err != nil {
			return err
		}
		l, err := b.loserSlot(m)
		if err != nil {
			return err
		}
		if !sameSlot(w, m.WinnerTo) || !sameSlot(l, m.LoserTo) {
			return fmt.Errorf("%w: links of %s do not match routing", ErrInvalidBracketTopology, m.ID)
		}
	}

	if err := b.verifyCapacity(); err != nil {
		return err
	}
	return b.verifySeeding()
}

// verifyCapacity checks that every losers round holds exactly as many seats
// as it has incoming entrants and that every seat past winners round 1 has
// exactly one feeder.
func (b *Bracket) verifyCapacity() error {
	count := func(s Section, r int) int { return len(b.Round(s, r)) }

	for k := 1; k <= b.LosersRounds; k++ {
		seats := 2 * count(SectionLosers, k)
		var incoming int
		switch {
		case k == 1:
			incoming = count(SectionWinners, 1)
		case losersRoundType(k) == RoundTypeDropout:
			// one losers survivor plus one fresh winners loser per match
			incoming = count(SectionLosers, k-1) + count(SectionWinners, k/2+1)
		default:
			incoming = count(SectionLosers, k-1)
		}
		if seats != incoming {
			return fmt.Errorf("%w: losers round %d has %d seats for %d entrants", ErrInvalidBracketTopology, k, seats, incoming)
		}
	}

	feeders := make(map[Slot]int)
	for _, m := range append(append([]*Match(nil), b.Winners...), b.Losers...) {
		for _, to := range []*Slot{m.WinnerTo, m.LoserTo} {
			if to != nil {
				feeders[*to]++
			}
		}
	}
	targets := append(append([]*Match(nil), b.Winners...), b.Losers...)
	targets = append(targets, b.GrandFinals[0])
	for _, m := range targets {
		want := 1
		if m.Section == SectionWinners && m.Round == 1 {
			want = 0
		}
		for seat := 1; seat <= 2; seat++ {
			if got := feeders[Slot{MatchID: m.ID, Seat: seat}]; got != want {
				return fmt.Errorf("%w: seat %d of %s has %d feeders, want %d", ErrInvalidBracketTopology, seat, m.ID, got, want)
			}
		}
	}
	return nil
}

// verifySeeding checks that every entrant holds exactly one winners round 1
// seat and that the remaining seats are byes.
func (b *Bracket) verifySeeding() error {
	seated := make(map[string]int)
	vacant := 0
	for _, m := range b.Round(SectionWinners, 1) {
		for seat := 1; seat <= 2; seat++ {
			id, isVacant := m.seat(seat)
			switch {
			case id != nil:
				seated[*id]++
			case isVacant:
				vacant++
			}
		}
	}
	for _, e := range b.Entrants {
		if seated[e.ID] != 1 {
			return fmt.Errorf("%w: entrant %s holds %d round 1 seats", ErrInvalidBracketTopology, e.ID, seated[e.ID])
		}
	}
	if len(seated) != len(b.Entrants) || vacant != b.ByeCount {
		return fmt.Errorf("%w: round 1 has %d entrants and %d byes", ErrInvalidBracketTopology, len(seated), vacant)
	}
	return nil
}
