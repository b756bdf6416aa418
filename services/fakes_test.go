package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/brdc/darts-league/brackets"
	"github.com/brdc/darts-league/cache"
	"github.com/brdc/darts-league/models"
	"github.com/brdc/darts-league/repositories"
)

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
	champions   map[int]string
	championErr error
	// statusErrs are returned by the next UpdateStatus calls, one each.
	statusErrs []error
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{}, champions: map[int]string{}}
	for _, t := range ts {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statusErrs) > 0 {
		err := r.statusErrs[0]
		r.statusErrs = r.statusErrs[1:]
		return err
	}
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetChampion(_ context.Context, _ repositories.SQLExecutor, id int, entrantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.championErr != nil {
		return r.championErr
	}
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.StatusCompleted
	t.ChampionEntrantID = &entrantID
	r.champions[id] = entrantID
	return nil
}

func (r *fakeTournamentRepo) status(id int) models.TournamentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tournaments[id].Status
}

type fakeEntrantRepo struct {
	roster  []*models.Entrant
	listErr error
}

func (r *fakeEntrantRepo) Create(_ context.Context, e *models.Entrant) error {
	r.roster = append(r.roster, e)
	return nil
}

func (r *fakeEntrantRepo) ListCheckedIn(_ context.Context, _ int) ([]*models.Entrant, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.roster, nil
}

type fakeResultRepo struct {
	mu        sync.Mutex
	results   map[string]*models.MatchResult
	createErr error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: map[string]*models.MatchResult{}}
}

func resultKey(tournamentID int, matchID string) string {
	return fmt.Sprintf("%d/%s", tournamentID, matchID)
}

func (r *fakeResultRepo) Create(_ context.Context, m *models.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	key := resultKey(m.TournamentID, m.MatchID)
	if _, ok := r.results[key]; ok {
		return repositories.ErrMatchResultExists
	}
	r.results[key] = m
	return nil
}

func (r *fakeResultRepo) GetByMatch(_ context.Context, tournamentID int, matchID string) (*models.MatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.results[resultKey(tournamentID, matchID)]
	if !ok {
		return nil, repositories.ErrMatchResultNotFound
	}
	return m, nil
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[int]*brackets.Bracket
	hits        int
	invalidated int
	setErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int]*brackets.Bracket{}}
}

func (c *fakeCache) Get(_ context.Context, id int) (*brackets.Bracket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	c.hits++
	return b.Clone(), nil
}

func (c *fakeCache) Set(_ context.Context, b *brackets.Bracket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if cur, ok := c.entries[b.TournamentID]; ok && cur.Revision > b.Revision {
		return nil
	}
	c.entries[b.TournamentID] = b.Clone()
	return nil
}

func (c *fakeCache) cached(id int) (*brackets.Bracket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[id]
	return b, ok
}

func (c *fakeCache) Invalidate(_ context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated++
	return nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (a *fakeArchiver) Archive(_ context.Context, b *brackets.Bracket) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.archived = append(a.archived, b.ID)
	return "https://cdn.league.example/brackets/" + b.ID + ".json", nil
}

type publishedMessage struct {
	tournamentID int
	messageType  string
	payload      interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *fakePublisher) Publish(tournamentID int, messageType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{tournamentID, messageType, payload})
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.messageType
	}
	return out
}

func (p *fakePublisher) last(messageType string) (publishedMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].messageType == messageType {
			return p.messages[i], true
		}
	}
	return publishedMessage{}, false
}
