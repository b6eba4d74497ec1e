// Package policy holds the restriction state consulted before transfers:
// account suspensions, per-token freezes, and the post-transfer cooldown.
//
// The store is single-writer. It performs no locking of its own; the
// process hosting it serializes access.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MaxCooldown is the ceiling for the configurable post-transfer cooldown.
const MaxCooldown = 30 * 24 * time.Hour

// ErrDurationTooLong is returned when a requested cooldown exceeds MaxCooldown.
var ErrDurationTooLong = errors.New("cooldown duration exceeds maximum")

// Store tracks suspensions, freezes, and cooldown expiries.
type Store struct {
	suspended map[common.Address]struct{}
	frozen    map[uint64]struct{}
	cooldown  time.Duration
	expiries  map[uint64]time.Time

	// Time source (for testing)
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty policy store with no cooldown configured.
func NewStore(opts ...Option) *Store {
	s := &Store{
		suspended: make(map[common.Address]struct{}),
		frozen:    make(map[uint64]struct{}),
		expiries:  make(map[uint64]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suspend marks an account as suspended. Idempotent.
func (s *Store) Suspend(addr common.Address) {
	s.suspended[addr] = struct{}{}
}

// Unsuspend clears a suspension. Idempotent.
func (s *Store) Unsuspend(addr common.Address) {
	delete(s.suspended, addr)
}

// IsSuspended reports whether an account is suspended.
func (s *Store) IsSuspended(addr common.Address) bool {
	_, ok := s.suspended[addr]
	return ok
}

// Freeze marks a token as frozen. Idempotent.
func (s *Store) Freeze(tokenID uint64) {
	s.frozen[tokenID] = struct{}{}
}

// Unfreeze clears a token freeze. Idempotent.
func (s *Store) Unfreeze(tokenID uint64) {
	delete(s.frozen, tokenID)
}

// IsFrozen reports whether a token is frozen.
func (s *Store) IsFrozen(tokenID uint64) bool {
	_, ok := s.frozen[tokenID]
	return ok
}

// SetCooldownDuration sets the cooldown applied to tokens after each
// transfer. Zero disables stamping. Already-stamped expiries keep the
// duration that was in force when they were stamped.
func (s *Store) SetCooldownDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("cooldown duration must not be negative: %s", d)
	}
	if d > MaxCooldown {
		return fmt.Errorf("%w: %s > %s", ErrDurationTooLong, d, MaxCooldown)
	}
	s.cooldown = d
	return nil
}

// CooldownDuration returns the currently configured cooldown.
func (s *Store) CooldownDuration() time.Duration {
	return s.cooldown
}

// StampCooldown records a cooldown expiry for a token using the current
// duration. With a zero duration no expiry is recorded.
func (s *Store) StampCooldown(tokenID uint64) {
	if s.cooldown == 0 {
		delete(s.expiries, tokenID)
		return
	}
	s.expiries[tokenID] = s.now().Add(s.cooldown)
}

// CooldownRemaining returns how long until the token's cooldown expires,
// or zero when the token is not locked.
func (s *Store) CooldownRemaining(tokenID uint64) time.Duration {
	expiry, ok := s.expiries[tokenID]
	if !ok {
		return 0
	}
	remaining := expiry.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	return remaining
}

// CooldownExpiry returns the recorded expiry for a token. The zero time
// means no expiry is recorded.
func (s *Store) CooldownExpiry(tokenID uint64) time.Time {
	return s.expiries[tokenID]
}

// ClearToken drops all per-token state. Called when a token is destroyed.
func (s *Store) ClearToken(tokenID uint64) {
	delete(s.frozen, tokenID)
	delete(s.expiries, tokenID)
}
