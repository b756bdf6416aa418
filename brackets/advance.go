package brackets

import (
	"fmt"
)

// AdvancementResult describes everything a single Advance call changed.
type AdvancementResult struct {
	MatchID  string `json:"match_id"`
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`

	WinnerTo *Slot `json:"winner_to,omitempty"`
	LoserTo  *Slot `json:"loser_to,omitempty"`
	// EliminatedID is set when the loser has no further match.
	EliminatedID *string `json:"eliminated_id,omitempty"`

	// Updated lists every mutated match id in mutation order, starting with
	// the reported match.
	Updated []string `json:"updated"`
	// Ready lists the matches that became playable.
	Ready []string `json:"ready"`
	// Walkovers lists matches that resolved without being played because
	// their other seat can never be filled.
	Walkovers []string `json:"walkovers,omitempty"`

	Reset      bool    `json:"reset"`
	ChampionID *string `json:"champion_id,omitempty"`
}

// Advance records the result of a ready or in-progress match and propagates
// the winner and loser to their next matches. The call is all-or-nothing: on
// error b is left untouched. On success the contents of b are replaced, so
// *Match pointers taken from b before the call are stale afterwards.
func Advance(b *Bracket, matchID, winnerID, loserID string) (*AdvancementResult, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil bracket", ErrInvalidBracketTopology)
	}
	m := b.Match(matchID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err := checkAdvanceable(m, winnerID, loserID); err != nil {
		return nil, err
	}

	work := b.Clone()
	a := &advancer{b: work}
	a.res = &AdvancementResult{MatchID: matchID, WinnerID: winnerID, LoserID: loserID}

	wm := work.Match(matchID)
	winner, loser := winnerID, loserID
	if err := a.complete(wm, &winner, &loser); err != nil {
		return nil, err
	}
	a.res.WinnerTo = cloneSlot(wm.WinnerTo)
	a.res.LoserTo = cloneSlot(wm.LoserTo)
	if (wm.LoserTo == nil && wm.Section != SectionGrandFinals) || a.res.ChampionID != nil {
		a.res.EliminatedID = cloneString(&loser)
	}

	work.Revision++
	*b = *work
	return a.res, nil
}

// Start moves a ready match to in_progress.
func Start(b *Bracket, matchID string) (*Match, error) {
	m := b.Match(matchID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	switch m.Status {
	case MatchStatusReady:
		m.Status = MatchStatusInProgress
		b.Revision++
		return m, nil
	case MatchStatusCompleted:
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAdvancement, matchID)
	default:
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidMatchState, matchID, m.Status)
	}
}

func checkAdvanceable(m *Match, winnerID, loserID string) error {
	switch m.Status {
	case MatchStatusCompleted:
		return fmt.Errorf("%w: %s", ErrDuplicateAdvancement, m.ID)
	case MatchStatusReady, MatchStatusInProgress:
	default:
		return fmt.Errorf("%w: match %s is %s", ErrInvalidMatchState, m.ID, m.Status)
	}
	if !m.Seated() {
		return fmt.Errorf("%w: match %s has an empty seat", ErrInvalidMatchState, m.ID)
	}
	if winnerID == loserID || !m.Has(winnerID) || !m.Has(loserID) {
		return fmt.Errorf("%w: match %s, winner %q, loser %q", ErrEntrantNotInMatch, m.ID, winnerID, loserID)
	}
	return nil
}

// advancer applies a result and every cascade it triggers to one bracket.
// The generator reuses it to resolve byes, so a bye and a reported match
// follow the same code path.
type advancer struct {
	b   *Bracket
	res *AdvancementResult
}

func (a *advancer) touch(id string) {
	if a.res != nil {
		a.res.Updated = append(a.res.Updated, id)
	}
}

// complete closes m. A nil winner marks a void match (both seats vacant), a
// nil loser marks a walkover; in both cases the missing entrant vacates its
// destination seat.
func (a *advancer) complete(m *Match, winner, loser *string) error {
	if m.Status == MatchStatusCompleted {
		return fmt.Errorf("%w: %s already completed", ErrInvalidBracketTopology, m.ID)
	}
	if err := a.checkLinks(m); err != nil {
		return err
	}
	m.Status = MatchStatusCompleted
	m.WinnerID = cloneString(winner)
	m.LoserID = cloneString(loser)
	a.touch(m.ID)

	if m.Section == SectionGrandFinals {
		return a.completeGrandFinal(m)
	}
	if m.WinnerTo != nil {
		if err := a.place(*m.WinnerTo, winner); err != nil {
			return err
		}
	}
	if m.LoserTo != nil {
		if err := a.place(*m.LoserTo, loser); err != nil {
			return err
		}
	}
	return nil
}

// checkLinks rejects a match whose stored links disagree with the routing
// rules. The stored links are what a client renders; the rules decide.
func (a *advancer) checkLinks(m *Match) error {
	w, err := a.b.winnerSlot(m)
	if err != nil {
		return err
	}
	l, err := a.b.loserSlot(m)
	if err != nil {
		return err
	}
	if !sameSlot(w, m.WinnerTo) || !sameSlot(l, m.LoserTo) {
		return fmt.Errorf("%w: links of %s do not match routing", ErrInvalidBracketTopology, m.ID)
	}
	return nil
}

func (a *advancer) completeGrandFinal(m *Match) error {
	if m.ID == grandFinalID && m.WinnerID != nil && m.Team1ID != nil && *m.WinnerID != *m.Team1ID {
		// Winners side entrant has lost once: play the reset game.
		if len(a.b.GrandFinals) > 1 {
			return fmt.Errorf("%w: reset game already exists", ErrInvalidBracketTopology)
		}
		reset := &Match{
			ID:       grandFinalResetID,
			Section:  SectionGrandFinals,
			Round:    2,
			Position: 0,
			Team1ID:  cloneString(m.Team1ID),
			Team2ID:  cloneString(m.Team2ID),
			Status:   MatchStatusReady,
		}
		a.b.GrandFinals = append(a.b.GrandFinals, reset)
		a.touch(reset.ID)
		if a.res != nil {
			a.res.Reset = true
			a.res.Ready = append(a.res.Ready, reset.ID)
		}
		return nil
	}
	a.b.ChampionID = cloneString(m.WinnerID)
	if a.res != nil {
		a.res.ChampionID = cloneString(m.WinnerID)
	}
	return nil
}

// place seats an entrant, or marks the seat vacant when entrant is nil, and
// settles the destination match.
func (a *advancer) place(to Slot, entrant *string) error {
	m := a.b.Match(to.MatchID)
	if m == nil {
		return fmt.Errorf("%w: missing match %s", ErrInvalidBracketTopology, to.MatchID)
	}
	if m.Status == MatchStatusCompleted {
		return fmt.Errorf("%w: match %s is already completed", ErrInvalidBracketTopology, m.ID)
	}
	id, vacant := m.seat(to.Seat)
	if id != nil || vacant {
		return fmt.Errorf("%w: seat %d of %s is already resolved", ErrInvalidBracketTopology, to.Seat, m.ID)
	}
	switch {
	case to.Seat == 1 && entrant != nil:
		m.Team1ID = cloneString(entrant)
	case to.Seat == 1:
		m.Team1Vacant = true
	case to.Seat == 2 && entrant != nil:
		m.Team2ID = cloneString(entrant)
	case to.Seat == 2:
		m.Team2Vacant = true
	default:
		return fmt.Errorf("%w: invalid seat %d for %s", ErrInvalidBracketTopology, to.Seat, m.ID)
	}
	a.touch(m.ID)
	return a.settle(m)
}

// settle resolves a pending match once both of its seats are decided.
func (a *advancer) settle(m *Match) error {
	if m.Status != MatchStatusPending {
		return nil
	}
	t1Done := m.Team1ID != nil || m.Team1Vacant
	t2Done := m.Team2ID != nil || m.Team2Vacant
	if !t1Done || !t2Done {
		return nil
	}

	switch {
	case m.Seated():
		m.Status = MatchStatusReady
		if a.res != nil {
			a.res.Ready = append(a.res.Ready, m.ID)
		}
		return nil
	case m.Team1ID != nil:
		m.Bye = true
		a.walkover(m.ID)
		return a.complete(m, m.Team1ID, nil)
	case m.Team2ID != nil:
		m.Bye = true
		a.walkover(m.ID)
		return a.complete(m, m.Team2ID, nil)
	default:
		m.Bye = true
		return a.complete(m, nil, nil)
	}
}

func (a *advancer) walkover(id string) {
	if a.res != nil {
		a.res.Walkovers = append(a.res.Walkovers, id)
	}
}
