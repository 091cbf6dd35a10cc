package ratelimiter

import (
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// GetterSetter is the counter store behind the token buckets. The
// in-memory implementation is the default; a shared store can be swapped
// in when the service runs with more than one replica.
type GetterSetter interface {
	Get(key string) (int, error)
	Set(key string, value int) error
	SetWithExpiration(key string, value int, expiration time.Duration) error
	Close() error
}
