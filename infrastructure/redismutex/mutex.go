// Package redismutex implements the per-user distributed lock that serializes
// every balance-affecting operation for a given user id, so a read of
// available balance and the admission decision that follows it form one
// logical critical section.
package redismutex

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrAcquireTimeout is returned when a lock could not be acquired within the
// retry ceiling. Callers surface this to the API boundary as a transient
// "too many requests" condition, never as a correctness failure.
var ErrAcquireTimeout = errors.New("redismutex: timed out acquiring lock")

const (
	ttl          = 5 * time.Second
	baseDelay    = 20 * time.Millisecond
	jitterMax    = 20 * time.Millisecond
	maxAttempts  = 500
)

// releaseScript compare-and-deletes the lock key only if it still holds the
// owner token this caller set, so a lock this caller lost to TTL expiry is
// never released out from under its new holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker acquires a short-TTL, owner-tokened lock per key on the fast store.
type Locker struct {
	client *redis.Client
}

// New creates a new Locker bound to a Redis client.
func New(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// WithLock acquires the lock for key, runs body, and always releases
// afterward (even if body returns an error). It fails with ErrAcquireTimeout
// if the lock could not be acquired within the retry ceiling.
func (l *Locker) WithLock(ctx context.Context, key string, body func(ctx context.Context) error) error {
	token := uuid.NewString()
	lockKey := fmt.Sprintf("lock:user:%s", key)

	if err := l.acquire(ctx, lockKey, token); err != nil {
		return err
	}
	defer l.release(lockKey, token)

	return body(ctx)
}

func (l *Locker) acquire(ctx context.Context, lockKey, token string) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("redismutex: acquire failed: %w", err)
		}
		if ok {
			return nil
		}

		jitter := time.Duration(rand.Int63n(int64(jitterMax)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay + jitter):
		}
	}

	log.WithField("key", lockKey).Warn("timed out acquiring per-user lock")
	return ErrAcquireTimeout
}

func (l *Locker) release(lockKey, token string) {
	// Use a background context: release must still run even if the caller's
	// context was cancelled mid-body, otherwise the lock leaks until TTL.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		log.WithFields(log.Fields{"key": lockKey, "error": err}).Error("failed to release per-user lock")
	}
}
