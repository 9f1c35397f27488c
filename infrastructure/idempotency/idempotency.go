// Package idempotency implements the durable replay cache backing every
// mutating API operation outside the hot bid path (which has its own
// idempotency slot inside the admission script). A caller-supplied key maps
// to a single outcome for 24 h: a fresh key runs the operation once, a
// replayed key while the first attempt is still in flight is rejected as a
// conflict, and a replayed key after completion returns the original result
// byte-for-byte.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttl = 24 * time.Hour

const pendingSentinel = "__pending__"

// ErrInProgress is returned by Reserve when another attempt with the same
// key has not yet completed.
var ErrInProgress = errors.New("idempotency: key is still being processed")

// Store implements the reservation and replay cache on the fast store.
type Store struct {
	client *redis.Client
}

// New creates a new idempotency Store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(scope, idempotencyKey string) string {
	return fmt.Sprintf("idem:%s:%s", scope, idempotencyKey)
}

// Reserve attempts to claim idempotencyKey for a fresh attempt. If the key
// is new, reserved is true and the caller should proceed, then call Save
// with the outcome. If the key already holds a finished result, reserved is
// false and result carries it for replay. If the key is reserved by an
// in-flight attempt, it returns ErrInProgress.
func (s *Store) Reserve(ctx context.Context, scope, idempotencyKey string) (reserved bool, result []byte, err error) {
	k := key(scope, idempotencyKey)

	ok, err := s.client.SetNX(ctx, k, pendingSentinel, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency: failed to reserve %s: %w", k, err)
	}
	if ok {
		return true, nil, nil
	}

	existing, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency: failed to read %s: %w", k, err)
	}
	if string(existing) == pendingSentinel {
		return false, nil, ErrInProgress
	}
	return false, existing, nil
}

// Save records the final outcome of a reserved key, making it available for
// replay for the remainder of the TTL.
func (s *Store) Save(ctx context.Context, scope, idempotencyKey string, result []byte) error {
	k := key(scope, idempotencyKey)
	if err := s.client.Set(ctx, k, result, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to save result for %s: %w", k, err)
	}
	return nil
}

// Release abandons a reservation that failed before any side effect began,
// letting a later retry of the same key start fresh. It must never be
// called once a side-effecting write has been attempted.
func (s *Store) Release(ctx context.Context, scope, idempotencyKey string) error {
	k := key(scope, idempotencyKey)
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to release %s: %w", k, err)
	}
	return nil
}
