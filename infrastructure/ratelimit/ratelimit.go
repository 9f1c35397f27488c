// Package ratelimit implements the fixed-window request counter backing
// the HTTP boundary's politeness limits. It is additional to, not a
// substitute for, the per-user mutex in redismutex: this package protects
// the system from a flood, the mutex protects correctness.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments rl:{prefix}:{u} and sets its expiry only on the
// first increment within the window, so the counter and its TTL always
// describe the same window even under concurrent callers.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter enforces a fixed request count per key within a fixed window that
// starts at the key's first request.
type Limiter struct {
	client *redis.Client
}

// New creates a new Limiter bound to a Redis client.
func New(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Result reports the outcome of an Allow check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Allow increments the counter for (prefix, key) and reports whether the
// caller is still within limit requests per window.
func (l *Limiter) Allow(ctx context.Context, prefix, key string, limit int, window time.Duration) (Result, error) {
	rlKey := fmt.Sprintf("rl:%s:%s", prefix, key)

	count, err := incrScript.Run(ctx, l.client, []string{rlKey}, int(window.Seconds())).Int()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: failed to increment counter: %w", err)
	}

	if count > limit {
		ttl, err := l.client.TTL(ctx, rlKey).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return Result{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: ttl}, nil
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: limit, Remaining: remaining}, nil
}
