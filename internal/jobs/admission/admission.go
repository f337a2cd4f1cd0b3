// Package admission enforces one active processing job per module.
package admission

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Guard grants at most one holder per key. Acquire reports false when the key
// is already held.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type memoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemory guards keys within this process.
func NewMemory() Guard { return &memoryGuard{held: map[string]struct{}{}} }

func (g *memoryGuard) Acquire(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *memoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

// redisGuard holds keys across processes with SET NX and a TTL so a crashed
// holder cannot block a module forever. Release only deletes a key this
// guard still owns.
type redisGuard struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedis; ttl should exceed the longest expected job.
func NewRedis(rdb *goredis.Client, prefix string, ttl time.Duration) Guard {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "coursemedia:job:"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &redisGuard{rdb: rdb, prefix: prefix, ttl: ttl, tokens: map[string]string{}}
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, g.prefix+key, token, g.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		g.mu.Lock()
		g.tokens[key] = token
		g.mu.Unlock()
	}
	return ok, nil
}

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (g *redisGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, g.rdb, []string{g.prefix + key}, token).Err()
}
