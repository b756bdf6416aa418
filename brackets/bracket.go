package brackets

import (
	"fmt"
)

type Section string

const (
	SectionWinners     Section = "winners"
	SectionLosers      Section = "losers"
	SectionGrandFinals Section = "grand_finals"
)

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusReady      MatchStatus = "ready"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// RoundType classifies a losers bracket round.
//
// A dropout round receives fresh losers from the winners bracket, a
// consolidation round only pairs off survivors of the previous losers round.
type RoundType string

const (
	RoundTypeDropout       RoundType = "dropout"
	RoundTypeConsolidation RoundType = "consolidation"
)

// Divisor is the factor applied to a completed losers match position to find
// the position of its winner in the next losers round. It depends on the type
// of the round that was just completed, never on the destination round.
func (t RoundType) Divisor() (int, error) {
	switch t {
	case RoundTypeConsolidation:
		return 1, nil
	case RoundTypeDropout:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: unknown losers round type %q", ErrInvalidBracketTopology, string(t))
	}
}

type Entrant struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Slot addresses one seat of a match. Seat 1 is team1, seat 2 is team2.
type Slot struct {
	MatchID string `json:"match_id" bson:"match_id"`
	Seat    int    `json:"seat" bson:"seat"`
}

type Match struct {
	ID        string    `json:"id" bson:"id"`
	Section   Section   `json:"section" bson:"section"`
	Round     int       `json:"round" bson:"round"`
	Position  int       `json:"position" bson:"position"`
	RoundType RoundType `json:"round_type,omitempty" bson:"round_type,omitempty"`

	Team1ID *string `json:"team1_id" bson:"team1_id"`
	Team2ID *string `json:"team2_id" bson:"team2_id"`
	// A vacant seat will never be filled: its feeder produced no entrant
	// (a bye upstream).
	Team1Vacant bool `json:"team1_vacant,omitempty" bson:"team1_vacant,omitempty"`
	Team2Vacant bool `json:"team2_vacant,omitempty" bson:"team2_vacant,omitempty"`

	Status   MatchStatus `json:"status" bson:"status"`
	WinnerID *string     `json:"winner_id" bson:"winner_id"`
	LoserID  *string     `json:"loser_id" bson:"loser_id"`
	// Bye marks a match completed without being played.
	Bye bool `json:"bye,omitempty" bson:"bye,omitempty"`

	// Score holds the reported leg counts, when the result came with them.
	Score *Score `json:"score,omitempty" bson:"score,omitempty"`

	WinnerTo *Slot `json:"winner_to" bson:"winner_to"`
	LoserTo  *Slot `json:"loser_to" bson:"loser_to"`
}

type Score struct {
	Team1Legs int `json:"team1_legs" bson:"team1_legs"`
	Team2Legs int `json:"team2_legs" bson:"team2_legs"`
}

// Seated reports whether both seats hold an entrant.
func (m *Match) Seated() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

// Has reports whether the entrant occupies one of the match seats.
func (m *Match) Has(entrantID string) bool {
	return (m.Team1ID != nil && *m.Team1ID == entrantID) ||
		(m.Team2ID != nil && *m.Team2ID == entrantID)
}

func (m *Match) seat(n int) (*string, bool) {
	if n == 1 {
		return m.Team1ID, m.Team1Vacant
	}
	return m.Team2ID, m.Team2Vacant
}

func (m *Match) clone() *Match {
	c := *m
	c.Team1ID = cloneString(m.Team1ID)
	c.Team2ID = cloneString(m.Team2ID)
	c.WinnerID = cloneString(m.WinnerID)
	c.LoserID = cloneString(m.LoserID)
	c.WinnerTo = cloneSlot(m.WinnerTo)
	c.LoserTo = cloneSlot(m.LoserTo)
	if m.Score != nil {
		score := *m.Score
		c.Score = &score
	}
	return &c
}

// Bracket is the aggregate root of a double elimination tournament. Matches
// are owned by the bracket and only mutated through Advance and Start.
type Bracket struct {
	ID            string    `json:"id" bson:"id"`
	TournamentID  int       `json:"tournament_id" bson:"tournament_id"`
	Entrants      []Entrant `json:"entrants" bson:"entrants"`
	BracketSize   int       `json:"bracket_size" bson:"bracket_size"`
	ByeCount      int       `json:"bye_count" bson:"bye_count"`
	WinnersRounds int       `json:"winners_rounds" bson:"winners_rounds"`
	LosersRounds  int       `json:"losers_rounds" bson:"losers_rounds"`
	Winners       []*Match  `json:"winners" bson:"winners"`
	Losers        []*Match  `json:"losers" bson:"losers"`
	GrandFinals   []*Match  `json:"grand_finals" bson:"grand_finals"`
	ChampionID    *string   `json:"champion_id" bson:"champion_id"`
	// Revision grows by one with every successful Start or Advance.
	Revision int64 `json:"revision" bson:"revision"`
}

// Clone returns a deep copy that shares no pointers with b.
func (b *Bracket) Clone() *Bracket {
	c := *b
	c.Entrants = append([]Entrant(nil), b.Entrants...)
	c.Winners = cloneMatches(b.Winners)
	c.Losers = cloneMatches(b.Losers)
	c.GrandFinals = cloneMatches(b.GrandFinals)
	c.ChampionID = cloneString(b.ChampionID)
	return &c
}

// Match looks a match up by id. It returns nil when no match has that id.
func (b *Bracket) Match(id string) *Match {
	for _, section := range [][]*Match{b.Winners, b.Losers, b.GrandFinals} {
		for _, m := range section {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

// At looks a match up by its coordinates.
func (b *Bracket) At(section Section, round, position int) *Match {
	for _, m := range b.section(section) {
		if m.Round == round && m.Position == position {
			return m
		}
	}
	return nil
}

// Round returns the matches of one round ordered by position.
func (b *Bracket) Round(section Section, round int) []*Match {
	var out []*Match
	for _, m := range b.section(section) {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// Matches returns every match: winners first, then losers, then grand finals.
func (b *Bracket) Matches() []*Match {
	out := make([]*Match, 0, len(b.Winners)+len(b.Losers)+len(b.GrandFinals))
	out = append(out, b.Winners...)
	out = append(out, b.Losers...)
	return append(out, b.GrandFinals...)
}

// Playable returns the matches that can be started or reported right now.
func (b *Bracket) Playable() []*Match {
	var out []*Match
	for _, m := range b.Matches() {
		if m.Status == MatchStatusReady || m.Status == MatchStatusInProgress {
			out = append(out, m)
		}
	}
	return out
}

func (b *Bracket) Completed() bool {
	return b.ChampionID != nil
}

func (b *Bracket) Entrant(id string) (Entrant, bool) {
	for _, e := range b.Entrants {
		if e.ID == id {
			return e, true
		}
	}
	return Entrant{}, false
}

func (b *Bracket) section(s Section) []*Match {
	switch s {
	case SectionWinners:
		return b.Winners
	case SectionLosers:
		return b.Losers
	case SectionGrandFinals:
		return b.GrandFinals
	}
	return nil
}

func cloneMatches(ms []*Match) []*Match {
	if ms == nil {
		return nil
	}
	out := make([]*Match, len(ms))
	for i, m := range ms {
		out[i] = m.clone()
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSlot(s *Slot) *Slot {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
