// Package guard provides short-lived in-flight locks, e.g. one submission per job.
package guard

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// TryLock takes key for ttl. ok is false when someone else holds it.
	// unlock is only valid when ok is true.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

const keyPrefix = "itops:guard:"

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct{ rdb *redis.Client }

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (g *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := keyPrefix + key
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, k, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := release.Run(ctx, g.rdb, []string{k}, token).Err(); err != nil {
			log.Printf("[WARN] guard release %s: %v", key, err)
		}
	}
	return unlock, true, nil
}

// Memory is a process-local Guard for dev mode and tests.
type Memory struct {
	mu   sync.Mutex
	now  func() time.Time
	held map[string]memLock
}

type memLock struct {
	token   string
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now, held: map[string]memLock{}}
}

func (g *Memory) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if l, ok := g.held[key]; ok && now.Before(l.expires) {
		return nil, false, nil
	}
	token := uuid.NewString()
	g.held[key] = memLock{token: token, expires: now.Add(ttl)}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if l, ok := g.held[key]; ok && l.token == token {
			delete(g.held, key)
		}
	}, true, nil
}
