package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brdc/darts-league/brackets"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when nothing is cached for the tournament.
var ErrCacheMiss = errors.New("bracket not cached")

// BracketCache holds read views of brackets. It is never the source of
// truth. Set never replaces a cached bracket with one of a lower Revision,
// so a reader that loaded before a write cannot overwrite the writer's copy.
type BracketCache interface {
	Get(ctx context.Context, tournamentID int) (*brackets.Bracket, error)
	Set(ctx context.Context, b *brackets.Bracket) error
	Invalidate(ctx context.Context, tournamentID int) error
}

// NewRedisClient parses a redis:// or rediss:// URL and checks the
// connection before returning the client.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

type redisBracketCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBracketCache(client *redis.Client, ttl time.Duration) BracketCache {
	return &redisBracketCache{client: client, ttl: ttl}
}

func bracketKey(tournamentID int) string {
	return fmt.Sprintf("bracket:tournament:%d", tournamentID)
}

// setIfNewer stores the bracket under KEYS[1] as a hash of revision and
// document unless a higher revision is already there.
var setIfNewer = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'revision')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], 'document', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (c *redisBracketCache) Get(ctx context.Context, tournamentID int) (*brackets.Bracket, error) {
	val, err := c.client.HGet(ctx, bracketKey(tournamentID), "document").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached bracket for tournament %d: %w", tournamentID, err)
	}
	b := &brackets.Bracket{}
	if err := json.Unmarshal(val, b); err != nil {
		return nil, fmt.Errorf("failed to decode cached bracket for tournament %d: %w", tournamentID, err)
	}
	return b, nil
}

func (c *redisBracketCache) Set(ctx context.Context, b *brackets.Bracket) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bracket %s for cache: %w", b.ID, err)
	}
	err = setIfNewer.Run(ctx, c.client, []string{bracketKey(b.TournamentID)},
		b.Revision, data, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to cache bracket for tournament %d: %w", b.TournamentID, err)
	}
	return nil
}

func (c *redisBracketCache) Invalidate(ctx context.Context, tournamentID int) error {
	return c.client.Del(ctx, bracketKey(tournamentID)).Err()
}

type noopBracketCache struct{}

// NewNoopBracketCache is used when REDIS_URL is unset. Every Get misses.
func NewNoopBracketCache() BracketCache {
	return noopBracketCache{}
}

func (noopBracketCache) Get(context.Context, int) (*brackets.Bracket, error) {
	return nil, ErrCacheMiss
}

func (noopBracketCache) Set(context.Context, *brackets.Bracket) error { return nil }

func (noopBracketCache) Invalidate(context.Context, int) error { return nil }
