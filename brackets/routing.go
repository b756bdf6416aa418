package brackets

import "fmt"

const (
	grandFinalID      = "GF1"
	grandFinalResetID = "GF2"
)

func winnersMatchID(round, position int) string {
	return fmt.Sprintf("WR%dM%d", round, position+1)
}

func losersMatchID(round, position int) string {
	return fmt.Sprintf("LR%dM%d", round, position+1)
}

// losersRoundType returns the type of losers round k. Round 1 only pairs off
// winners bracket round 1 losers and counts as consolidation.
func losersRoundType(k int) RoundType {
	if k%2 == 0 {
		return RoundTypeDropout
	}
	return RoundTypeConsolidation
}

// losersRoundMatches is the number of matches in losers round k of a bracket
// of the given size. Rounds 2j-1 and 2j both hold size/2^(j+1) matches.
func losersRoundMatches(size, k int) int {
	j := (k + 1) / 2
	return size >> (j + 1)
}

// winnerSlot computes where the winner of m is seated next. Grand final
// matches have no static destination and yield nil.
func (b *Bracket) winnerSlot(m *Match) (*Slot, error) {
	var to Slot
	switch m.Section {
	case SectionWinners:
		if m.Round == b.WinnersRounds {
			to = Slot{MatchID: grandFinalID, Seat: 1}
			break
		}
		to = Slot{MatchID: winnersMatchID(m.Round+1, m.Position/2), Seat: m.Position%2 + 1}
	case SectionLosers:
		if m.Round == b.LosersRounds {
			to = Slot{MatchID: grandFinalID, Seat: 2}
			break
		}
		d, err := m.RoundType.Divisor()
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", m.ID, err)
		}
		seat := 1
		if d == 2 {
			seat = m.Position%2 + 1
		}
		to = Slot{MatchID: losersMatchID(m.Round+1, m.Position/d), Seat: seat}
	case SectionGrandFinals:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: match %s has unknown section %q", ErrInvalidBracketTopology, m.ID, m.Section)
	}
	if b.Match(to.MatchID) == nil {
		return nil, fmt.Errorf("%w: winner of %s routed to missing match %s", ErrInvalidBracketTopology, m.ID, to.MatchID)
	}
	return &to, nil
}

// loserSlot computes where the loser of m drops to. Losers bracket and grand
// final losers are eliminated and yield nil.
//
// Winners round 1 losers pair off in losers round 1. A winners round r loser
// (r >= 2) enters dropout round 2(r-1) at the same position, so the winners
// final loser meets the losers bracket survivor in the losers final.
func (b *Bracket) loserSlot(m *Match) (*Slot, error) {
	if m.Section != SectionWinners {
		return nil, nil
	}
	var to Slot
	switch {
	case b.LosersRounds == 0:
		to = Slot{MatchID: grandFinalID, Seat: 2}
	case m.Round == 1:
		to = Slot{MatchID: losersMatchID(1, m.Position/2), Seat: m.Position%2 + 1}
	default:
		to = Slot{MatchID: losersMatchID(2*(m.Round-1), m.Position), Seat: 2}
	}
	if b.Match(to.MatchID) == nil {
		return nil, fmt.Errorf("%w: loser of %s routed to missing match %s", ErrInvalidBracketTopology, m.ID, to.MatchID)
	}
	return &to, nil
}

func sameSlot(a, b *Slot) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
