package services

import (
	"errors"
	"fmt"

	"github.com/brdc/darts-league/brackets"
	"github.com/brdc/darts-league/models"
	"github.com/brdc/darts-league/repositories"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusRegistration: {models.StatusActive, models.StatusCanceled},
		models.StatusActive:       {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted:    {},
		models.StatusCanceled:     {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// handleRepositoryError translates store sentinels into service errors.
func handleRepositoryError(err error, tournamentID int) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return fmt.Errorf("%w: %d", ErrTournamentNotFound, tournamentID)
	case errors.Is(err, repositories.ErrBracketNotFound):
		return fmt.Errorf("%w: tournament %d", ErrBracketNotFound, tournamentID)
	case errors.Is(err, repositories.ErrBracketExists):
		return fmt.Errorf("%w: tournament %d", ErrBracketExists, tournamentID)
	default:
		return err
	}
}

func entrantsFromRoster(roster []*models.Entrant) []brackets.Entrant {
	out := make([]brackets.Entrant, 0, len(roster))
	for _, e := range roster {
		if e == nil {
			continue
		}
		out = append(out, brackets.Entrant{ID: e.ID, Name: e.Name})
	}
	return out
}

// resolveOutcome works out winner and loser of m from a submission. Leg
// scores are given from the point of view of the match seats.
func resolveOutcome(m *brackets.Match, input SubmitResultInput) (winner, loser string, err error) {
	if !m.Seated() {
		return "", "", fmt.Errorf("%w: match %s is %s", brackets.ErrInvalidMatchState, m.ID, m.Status)
	}
	team1, team2 := *m.Team1ID, *m.Team2ID

	var fromLegs string
	if input.Team1Legs != nil || input.Team2Legs != nil {
		if input.Team1Legs == nil || input.Team2Legs == nil {
			return "", "", fmt.Errorf("%w: both team1_legs and team2_legs are required", ErrValidationFailed)
		}
		t1, t2 := *input.Team1Legs, *input.Team2Legs
		switch {
		case t1 < 0 || t2 < 0:
			return "", "", fmt.Errorf("%w: leg scores cannot be negative", ErrValidationFailed)
		case t1 == t2:
			return "", "", fmt.Errorf("%w: %w", ErrValidationFailed, ErrDrawNotAllowed)
		case t1 > t2:
			fromLegs = team1
		default:
			fromLegs = team2
		}
	}

	winner = derefString(input.WinnerID)
	switch {
	case winner == "" && fromLegs == "":
		return "", "", fmt.Errorf("%w: %w", ErrValidationFailed, ErrOutcomeMissing)
	case winner == "":
		winner = fromLegs
	case fromLegs != "" && fromLegs != winner:
		return "", "", fmt.Errorf("%w: winner_id disagrees with the leg scores", ErrValidationFailed)
	}

	switch winner {
	case team1:
		return team1, team2, nil
	case team2:
		return team2, team1, nil
	default:
		return "", "", fmt.Errorf("%w: %s in match %s", brackets.ErrEntrantNotInMatch, winner, m.ID)
	}
}
