// Package kv abstracts the ephemeral keyed store used for OTP codes,
// attempt counters, verification sessions and token revocation marks.
// Every key carries a TTL; expiry is enforced by the store itself, not
// by application timers.
package kv

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	// Get returns the value for key, or ErrNotFound if the key is
	// missing or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key with the given TTL, replacing any
	// previous value and resetting the expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Incr atomically increments the counter at key and returns the
	// new value. The TTL is applied only when the key is created, so
	// repeated increments do not extend the window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
