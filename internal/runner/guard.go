package runner

import (
	"context"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/internal/cache"
)

// Guard prevents two runs of the same source from overlapping.
type Guard interface {
	// TryLock marks source as running and reports false when it already is.
	TryLock(ctx context.Context, source string) (bool, error)
	// Unlock releases a lock taken by TryLock.
	Unlock(ctx context.Context, source string)
}

// LocalGuard guards runs within one process.
type LocalGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// TryLock implements Guard.
func (g *LocalGuard) TryLock(_ context.Context, source string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[source]; ok {
		return false, nil
	}
	g.running[source] = struct{}{}
	return true, nil
}

// Unlock implements Guard.
func (g *LocalGuard) Unlock(_ context.Context, source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, source)
}

// Locker is the subset of the go-zero Redis client RedisGuard needs.
type Locker interface {
	SetnxExCtx(ctx context.Context, key, value string, seconds int) (bool, error)
	EvalCtx(ctx context.Context, script string, keys []string, args ...any) (any, error)
}

// releaseScript deletes the lock only while it still holds our owner value.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisGuard guards runs across processes sharing a Redis. The lock expires
// after TTL so a crashed run cannot block its source forever.
type RedisGuard struct {
	store Locker
	ttl   time.Duration
	owner string
}

// NewRedisGuard returns a guard holding locks for at most ttl.
func NewRedisGuard(store Locker, ttl time.Duration, owner string) *RedisGuard {
	if ttl < time.Second {
		ttl = time.Hour
	}
	return &RedisGuard{store: store, ttl: ttl, owner: owner}
}

// TryLock implements Guard.
func (g *RedisGuard) TryLock(ctx context.Context, source string) (bool, error) {
	return g.store.SetnxExCtx(ctx, cache.RunLockKey(source), g.owner, int(g.ttl/time.Second))
}

// Unlock implements Guard. A lock that expired and was taken by another
// owner is left alone. The context may already be cancelled, so the release
// uses a short context of its own.
func (g *RedisGuard) Unlock(ctx context.Context, source string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	key := cache.RunLockKey(source)
	res, err := g.store.EvalCtx(releaseCtx, releaseScript, []string{key}, g.owner)
	if err != nil {
		logx.WithContext(ctx).Errorf("runner: release %s: %v", key, err)
		return
	}
	if n, ok := res.(int64); ok && n == 0 {
		logx.WithContext(ctx).Infof("runner: lock %s no longer held by %s", key, g.owner)
	}
}
