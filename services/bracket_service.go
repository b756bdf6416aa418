package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brdc/darts-league/brackets"
	"github.com/brdc/darts-league/cache"
	"github.com/brdc/darts-league/metrics"
	"github.com/brdc/darts-league/models"
	"github.com/brdc/darts-league/repositories"
	"github.com/brdc/darts-league/storage"
	"golang.org/x/sync/errgroup"
)

// BracketPublisher fans bracket events out to spectators. *brackets.Hub
// implements it.
type BracketPublisher interface {
	Publish(tournamentID int, messageType string, payload interface{})
}

type GenerateBracketInput struct {
	// Entrants in seed order. Empty means the checked-in roster is used.
	Entrants []brackets.Entrant `json:"entrants,omitempty"`
	Shuffle  bool               `json:"shuffle"`
}

type SubmitResultInput struct {
	MatchID   string  `json:"-"`
	WinnerID  *string `json:"winner_id,omitempty"`
	Team1Legs *int    `json:"team1_legs,omitempty"`
	Team2Legs *int    `json:"team2_legs,omitempty"`
	// GameStats is kept as sent, alongside the result record.
	GameStats   json.RawMessage `json:"game_stats,omitempty"`
	SubmittedBy *int            `json:"-"`
}

type SubmitResultOutput struct {
	Outcome *brackets.AdvancementResult `json:"outcome"`
	// Duplicate is true when the same result had already been applied and
	// this call changed nothing.
	Duplicate bool `json:"duplicate"`
}

type TournamentCompletedPayload struct {
	TournamentID int    `json:"tournament_id"`
	ChampionID   string `json:"champion_id"`
	ChampionName string `json:"champion_name,omitempty"`
	ArchiveURL   string `json:"archive_url,omitempty"`
}

type BracketService interface {
	GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*brackets.Bracket, error)
	GetBracket(ctx context.Context, tournamentID int) (*brackets.Bracket, error)
	StartMatch(ctx context.Context, tournamentID int, matchID string) (*brackets.Match, error)
	SubmitMatchResult(ctx context.Context, tournamentID int, input SubmitResultInput) (*SubmitResultOutput, error)
}

type bracketService struct {
	bracketRepo    repositories.BracketRepository
	tournamentRepo repositories.TournamentRepository
	entrantRepo    repositories.EntrantRepository
	resultRepo     repositories.MatchResultRepository
	generator      brackets.BracketGenerator
	cache          cache.BracketCache
	archiver       storage.BracketArchiver
	publisher      BracketPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

func NewBracketService(
	bracketRepo repositories.BracketRepository,
	tournamentRepo repositories.TournamentRepository,
	entrantRepo repositories.EntrantRepository,
	resultRepo repositories.MatchResultRepository,
	bracketCache cache.BracketCache,
	archiver storage.BracketArchiver,
	publisher BracketPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) BracketService {
	if bracketCache == nil {
		bracketCache = cache.NewNoopBracketCache()
	}
	if archiver == nil {
		archiver = storage.NewNoopArchiver()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		bracketRepo:    bracketRepo,
		tournamentRepo: tournamentRepo,
		entrantRepo:    entrantRepo,
		resultRepo:     resultRepo,
		generator:      brackets.NewDoubleEliminationGenerator(),
		cache:          bracketCache,
		archiver:       archiver,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*brackets.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}
	if !isValidStatusTransition(tournament.Status, models.StatusActive) {
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrTournamentInvalidStatusTransition, tournamentID, tournament.Status)
	}

	entrants := input.Entrants
	if len(entrants) == 0 {
		roster, err := s.entrantRepo.ListCheckedIn(ctx, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list checked-in entrants for tournament %d: %w", tournamentID, err)
		}
		entrants = entrantsFromRoster(roster)
	}

	s.logger.InfoContext(ctx, "Generating bracket",
		slog.Int("tournament_id", tournamentID),
		slog.String("generator", s.generator.GetName()),
		slog.Int("entrants", len(entrants)),
		slog.Bool("shuffle", input.Shuffle))

	b, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: tournamentID,
		Entrants:     entrants,
		Shuffle:      input.Shuffle,
	})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughEntrants) || errors.Is(err, brackets.ErrInvalidEntrants) {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
		return nil, fmt.Errorf("failed to generate bracket for tournament %d: %w", tournamentID, err)
	}

	// The status move shares the insert's fate: on the Postgres store both
	// commit in one transaction, elsewhere a failed move removes the bracket.
	err = s.bracketRepo.Create(ctx, b, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusActive)
	})
	if errors.Is(err, repositories.ErrBracketExists) {
		return s.resumeGeneration(ctx, tournamentID)
	}
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}

	s.announceGenerated(ctx, b)
	return b, nil
}

// resumeGeneration handles a bracket that is already stored. If the
// tournament never left registration, an earlier call stored the bracket but
// did not finish, so the status move and announcement are completed now.
func (s *bracketService) resumeGeneration(ctx context.Context, tournamentID int) (*brackets.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}
	if tournament.Status != models.StatusRegistration {
		return nil, fmt.Errorf("%w: tournament %d", ErrBracketExists, tournamentID)
	}

	b, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournamentID, models.StatusActive); err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}

	s.logger.WarnContext(ctx, "Resumed unfinished bracket generation",
		slog.Int("tournament_id", tournamentID),
		slog.String("bracket_id", b.ID))
	s.announceGenerated(ctx, b)
	return b, nil
}

func (s *bracketService) announceGenerated(ctx context.Context, b *brackets.Bracket) {
	s.refresh(ctx, b)
	s.publish(b.TournamentID, brackets.MessageBracketGenerated, b)
	s.metrics.IncGenerated()
	s.logger.InfoContext(ctx, "Bracket generated",
		slog.Int("tournament_id", b.TournamentID),
		slog.String("bracket_id", b.ID),
		slog.Int("bracket_size", b.BracketSize),
		slog.Int("byes", b.ByeCount))
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*brackets.Bracket, error) {
	cached, err := s.cache.Get(ctx, tournamentID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "Bracket cache read failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}

	b, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}
	if err := s.cache.Set(ctx, b); err != nil {
		s.logger.WarnContext(ctx, "Bracket cache write failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return b, nil
}

func (s *bracketService) StartMatch(ctx context.Context, tournamentID int, matchID string) (*brackets.Match, error) {
	updated, err := s.bracketRepo.Update(ctx, tournamentID, func(b *brackets.Bracket) error {
		_, err := brackets.Start(b, matchID)
		return err
	})
	if err != nil {
		return nil, handleRepositoryError(err, tournamentID)
	}

	match := updated.Match(matchID)
	s.refresh(ctx, updated)
	s.publish(tournamentID, brackets.MessageMatchStarted, match)
	return match, nil
}

func (s *bracketService) SubmitMatchResult(ctx context.Context, tournamentID int, input SubmitResultInput) (*SubmitResultOutput, error) {
	started := time.Now()
	defer s.metrics.ObserveAdvance(started)

	var (
		outcome   *brackets.AdvancementResult
		completed *brackets.Match
	)
	updated, err := s.bracketRepo.Update(ctx, tournamentID, func(b *brackets.Bracket) error {
		outcome, completed = nil, nil

		m := b.Match(input.MatchID)
		if m == nil {
			return fmt.Errorf("%w: %s", brackets.ErrMatchNotFound, input.MatchID)
		}
		if m.Status == brackets.MatchStatusCompleted {
			snapshot := *m
			completed = &snapshot
			return fmt.Errorf("%w: %s", brackets.ErrDuplicateAdvancement, m.ID)
		}
		winner, loser, err := resolveOutcome(m, input)
		if err != nil {
			return err
		}
		res, err := brackets.Advance(b, m.ID, winner, loser)
		if err != nil {
			return err
		}
		if input.Team1Legs != nil && input.Team2Legs != nil {
			b.Match(res.MatchID).Score = &brackets.Score{Team1Legs: *input.Team1Legs, Team2Legs: *input.Team2Legs}
		}
		outcome = res
		return nil
	})
	if err != nil {
		if errors.Is(err, brackets.ErrDuplicateAdvancement) && completed != nil && !completed.Bye {
			return s.replayResult(ctx, tournamentID, completed, input)
		}
		s.metrics.ObserveResult(metrics.OutcomeRejected)
		return nil, handleRepositoryError(err, tournamentID)
	}

	s.metrics.ObserveResult(metrics.OutcomeAdvanced)
	s.recordResult(ctx, tournamentID, input, outcome)
	s.refresh(ctx, updated)
	s.publish(tournamentID, brackets.MessageMatchAdvanced, outcome)

	s.logger.InfoContext(ctx, "Match result applied",
		slog.Int("tournament_id", tournamentID),
		slog.String("match_id", outcome.MatchID),
		slog.String("winner_id", outcome.WinnerID),
		slog.Int("ready", len(outcome.Ready)),
		slog.Int("walkovers", len(outcome.Walkovers)))

	if outcome.Reset {
		s.metrics.IncReset()
	}
	if outcome.ChampionID != nil {
		s.metrics.IncChampion()
		s.finishTournament(ctx, updated, *outcome.ChampionID)
	}
	return &SubmitResultOutput{Outcome: outcome}, nil
}

// replayResult answers a submission for a match that is already completed.
// The same winner gets the original outcome back; a different one is a
// conflict.
func (s *bracketService) replayResult(ctx context.Context, tournamentID int, m *brackets.Match, input SubmitResultInput) (*SubmitResultOutput, error) {
	winner, _, err := resolveOutcome(m, input)
	if err != nil {
		s.metrics.ObserveResult(metrics.OutcomeRejected)
		return nil, err
	}
	if derefString(m.WinnerID) != winner {
		s.metrics.ObserveResult(metrics.OutcomeConflict)
		return nil, fmt.Errorf("%w: match %s was won by %s", ErrResultConflict, m.ID, derefString(m.WinnerID))
	}
	s.metrics.ObserveResult(metrics.OutcomeDuplicate)

	outcome, err := s.storedOutcome(ctx, tournamentID, m)
	if err != nil {
		return nil, err
	}

	// A champion-deciding result may have been applied while the follow-up
	// writes failed. Running them again is harmless.
	if outcome.ChampionID != nil {
		if b, err := s.bracketRepo.GetByTournamentID(ctx, tournamentID); err == nil {
			s.finishTournament(ctx, b, *outcome.ChampionID)
		} else {
			s.logger.WarnContext(ctx, "Could not reload bracket for completion replay", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
	return &SubmitResultOutput{Outcome: outcome, Duplicate: true}, nil
}

func (s *bracketService) storedOutcome(ctx context.Context, tournamentID int, m *brackets.Match) (*brackets.AdvancementResult, error) {
	stored, err := s.resultRepo.GetByMatch(ctx, tournamentID, m.ID)
	switch {
	case err == nil:
		var outcome brackets.AdvancementResult
		if err := json.Unmarshal(stored.Outcome, &outcome); err != nil {
			return nil, fmt.Errorf("failed to decode stored outcome of match %s: %w", m.ID, err)
		}
		return &outcome, nil
	case errors.Is(err, repositories.ErrMatchResultNotFound):
		// The audit row was never written; rebuild what the match itself says.
		return &brackets.AdvancementResult{
			MatchID:  m.ID,
			WinnerID: derefString(m.WinnerID),
			LoserID:  derefString(m.LoserID),
			WinnerTo: m.WinnerTo,
			LoserTo:  m.LoserTo,
			Updated:  []string{},
			Ready:    []string{},
		}, nil
	default:
		return nil, fmt.Errorf("failed to load stored result of match %s: %w", m.ID, err)
	}
}

func (s *bracketService) recordResult(ctx context.Context, tournamentID int, input SubmitResultInput, outcome *brackets.AdvancementResult) {
	raw, err := json.Marshal(outcome)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode outcome", slog.String("match_id", outcome.MatchID), slog.Any("error", err))
		return
	}
	record := &models.MatchResult{
		TournamentID: tournamentID,
		MatchID:      outcome.MatchID,
		WinnerID:     outcome.WinnerID,
		LoserID:      outcome.LoserID,
		Team1Legs:    input.Team1Legs,
		Team2Legs:    input.Team2Legs,
		SubmittedBy:  input.SubmittedBy,
		GameStats:    input.GameStats,
		Outcome:      raw,
	}
	if err := s.resultRepo.Create(ctx, record); err != nil {
		level := slog.LevelError
		if errors.Is(err, repositories.ErrMatchResultExists) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "Failed to record match result",
			slog.Int("tournament_id", tournamentID),
			slog.String("match_id", outcome.MatchID),
			slog.Any("error", err))
	}
}

// finishTournament records the champion and archives the final bracket.
// Failures are logged; the bracket itself is already final.
func (s *bracketService) finishTournament(ctx context.Context, b *brackets.Bracket, championID string) {
	payload := TournamentCompletedPayload{TournamentID: b.TournamentID, ChampionID: championID}
	if e, ok := b.Entrant(championID); ok {
		payload.ChampionName = e.Name
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.tournamentRepo.SetChampion(gCtx, nil, b.TournamentID, championID); err != nil {
			return fmt.Errorf("failed to record champion: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		url, err := s.archiver.Archive(gCtx, b)
		if err != nil {
			return fmt.Errorf("failed to archive bracket %s: %w", b.ID, err)
		}
		payload.ArchiveURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Tournament completion incomplete",
			slog.Int("tournament_id", b.TournamentID),
			slog.String("champion_id", championID),
			slog.Any("error", err))
	}

	s.publish(b.TournamentID, brackets.MessageTournamentCompleted, payload)
	s.logger.InfoContext(ctx, "Tournament completed",
		slog.Int("tournament_id", b.TournamentID),
		slog.String("champion_id", championID))
}

// refresh writes a just-committed bracket through to the cache. If that
// fails the entry is dropped so readers fall back to the store.
func (s *bracketService) refresh(ctx context.Context, b *brackets.Bracket) {
	err := s.cache.Set(ctx, b)
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "Bracket cache write failed", slog.Int("tournament_id", b.TournamentID), slog.Any("error", err))
	if err := s.cache.Invalidate(ctx, b.TournamentID); err != nil {
		s.logger.WarnContext(ctx, "Bracket cache invalidation failed", slog.Int("tournament_id", b.TournamentID), slog.Any("error", err))
	}
}

func (s *bracketService) publish(tournamentID int, messageType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(tournamentID, messageType, payload)
	}
}
