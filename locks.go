package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slotLockTTL bounds how long a crashed regeneration can hold a slot.
const slotLockTTL = 30 * time.Second

// slotLocker guards regeneration of one (user, date, slot). acquire reports
// false when another request already holds the key.
type slotLocker interface {
	acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

func slotLockKey(userID int, date, slot string) string {
	return fmt.Sprintf("mealmind:regen:%d:%s:%s", userID, date, slot)
}

/* ─── Redis ──────────────────────────────────────────────────────────── */

// redisLocker uses SET NX with a TTL so locks survive across instances. The
// value is a per-acquire token; release deletes the key only while it still
// holds that token, so a holder that outlived the TTL cannot drop a newer lock.
type redisLocker struct {
	rdb *redis.Client
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *redisLocker) acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, slotLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}

// connectRedis parses url, configures the pool and pings with a timeout.
func connectRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

/* ─── In-process ─────────────────────────────────────────────────────── */

// memLocker is the single-instance fallback when no Redis is configured. It
// follows the same TTL and token rules as redisLocker.
type memLocker struct {
	mu   sync.Mutex
	held map[string]memLock
	seq  uint64
	now  func() time.Time
}

type memLock struct {
	token   uint64
	expires time.Time
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]memLock), now: time.Now}
}

func (l *memLocker) acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	l.seq++
	token := l.seq
	l.held[key] = memLock{token: token, expires: now.Add(slotLockTTL)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[key]; ok && cur.token == token {
			delete(l.held, key)
		}
	}, true, nil
}
