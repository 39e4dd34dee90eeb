// Package keyring manages a pool of API credentials with pluggable rotation
// so a client can spread signed requests across multiple keys and route
// around keys that start failing.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"nakula/pkg/core"
)

// Strategy selects when the ring advances to the next key.
type Strategy int

const (
	// RotateRoundRobin advances to the next key after every use.
	RotateRoundRobin Strategy = iota
	// RotateOnError advances when a request with the current key fails.
	RotateOnError
	// RotateOnRateLimit advances only when the exchange rate limits the
	// current key.
	RotateOnRateLimit
)

// APIKey is one credential set in the ring.
type APIKey struct {
	ID         string
	Key        string
	Secret     string
	Passphrase string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int
}

// String renders the key with the secret masked.
func (k *APIKey) String() string {
	masked := "****"
	if len(k.Key) > 8 {
		masked = k.Key[:4] + "..." + k.Key[len(k.Key)-4:]
	}
	return fmt.Sprintf("APIKey(id=%s key=%s disabled=%t errors=%d)", k.ID, masked, k.Disabled, k.ErrorCount)
}

// Ring holds the keys and the active cursor. Safe for concurrent use.
type Ring struct {
	mu       sync.Mutex
	keys     []*APIKey
	current  int
	strategy Strategy
}

// New creates a Ring over the given keys.
func New(strategy Strategy, keys ...*APIKey) *Ring {
	return &Ring{
		keys:     keys,
		strategy: strategy,
	}
}

// Current returns the active key, skipping disabled keys. It returns an error
// when every key is disabled or the ring is empty.
func (r *Ring) Current() (*APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// Rotate advances to the next enabled key and returns it.
func (r *Ring) Rotate() (*APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceLocked()
	return r.currentLocked()
}

// MarkUsed stamps the active key and, under round-robin rotation, advances
// the cursor.
func (r *Ring) MarkUsed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, err := r.currentLocked(); err == nil {
		key.LastUsed = time.Now()
	}
	if r.strategy == RotateRoundRobin {
		r.advanceLocked()
	}
}

// OnError records a failure against the active key and rotates if the
// strategy calls for it.
func (r *Ring) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, cerr := r.currentLocked()
	if cerr != nil {
		return
	}
	key.ErrorCount++

	switch r.strategy {
	case RotateOnError:
		r.advanceLocked()
	case RotateOnRateLimit:
		if core.IsRateLimitError(err) {
			r.advanceLocked()
		}
	}
}

// Add appends a key to the ring.
func (r *Ring) Add(key *APIKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

// Remove deletes the key with the given ID. It returns false when no key
// matches.
func (r *Ring) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, key := range r.keys {
		if key.ID == id {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			if r.current >= len(r.keys) {
				r.current = 0
			}
			return true
		}
	}
	return false
}

// Disable takes the key with the given ID out of rotation.
func (r *Ring) Disable(id string) {
	r.setDisabled(id, true)
}

// Enable returns the key with the given ID to rotation.
func (r *Ring) Enable(id string) {
	r.setDisabled(id, false)
}

// Len returns the number of keys in the ring, disabled included.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

func (r *Ring) setDisabled(id string, disabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.ID == id {
			key.Disabled = disabled
			return
		}
	}
}

func (r *Ring) currentLocked() (*APIKey, error) {
	if len(r.keys) == 0 {
		return nil, fmt.Errorf("%w: key ring is empty", core.ErrInvalidCredentials)
	}
	for range r.keys {
		key := r.keys[r.current]
		if !key.Disabled {
			return key, nil
		}
		r.advanceLocked()
	}
	return nil, fmt.Errorf("%w: all keys are disabled", core.ErrInvalidCredentials)
}

func (r *Ring) advanceLocked() {
	if len(r.keys) == 0 {
		return
	}
	r.current = (r.current + 1) % len(r.keys)
}
