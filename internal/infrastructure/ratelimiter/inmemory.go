package ratelimiter

import (
	"sync"
	"time"
)

const sweepInterval = time.Minute

type entry struct {
	value     int
	expiresAt time.Time
}

// InMemory is a process-local GetterSetter with lazy expiry on read and
// a background sweep that reclaims dead keys.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry

	done      chan struct{}
	closeOnce sync.Once
}

func NewInMemory() GetterSetter {
	im := &InMemory{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}

	go im.sweep()

	return im
}

func (i *InMemory) Get(key string) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	e, ok := i.entries[key]
	if !ok || e.expired(time.Now()) {
		return 0, ErrCacheMiss
	}
	return e.value, nil
}

func (i *InMemory) Set(key string, value int) error {
	return i.SetWithExpiration(key, value, 0)
}

func (i *InMemory) SetWithExpiration(key string, value int, expiration time.Duration) error {
	e := entry{value: value}
	if expiration > 0 {
		e.expiresAt = time.Now().Add(expiration)
	}

	i.mu.Lock()
	i.entries[key] = e
	i.mu.Unlock()

	return nil
}

func (i *InMemory) Close() error {
	i.closeOnce.Do(func() {
		close(i.done)
	})
	return nil
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (i *InMemory) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			i.mu.Lock()
			for key, e := range i.entries {
				if e.expired(now) {
					delete(i.entries, key)
				}
			}
			i.mu.Unlock()
		case <-i.done:
			return
		}
	}
}
