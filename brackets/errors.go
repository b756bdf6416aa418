package brackets

import (
	"errors"
	"fmt"
)

var (
	ErrNotEnoughEntrants = errors.New("at least two entrants are required")
	ErrInvalidEntrants   = errors.New("entrant ids must be non-empty and unique")

	// ErrInvalidBracketTopology signals a structural defect: a computed
	// position has no match, a link disagrees with the routing rules or a
	// destination seat is already taken. It is never a caller mistake.
	ErrInvalidBracketTopology = errors.New("invalid bracket topology")

	ErrInvalidMatchState = errors.New("match is not in an advanceable state")
	// ErrDuplicateAdvancement also matches ErrInvalidMatchState.
	ErrDuplicateAdvancement = fmt.Errorf("%w: match already completed", ErrInvalidMatchState)
	ErrEntrantNotInMatch    = fmt.Errorf("%w: entrant is not seated in this match", ErrInvalidMatchState)

	ErrMatchNotFound = errors.New("match not found")
)
