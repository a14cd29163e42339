// Package throttle enforces the failed-login lockout: three failed attempts
// for one email block further attempts for 180 seconds.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/udecfit/backend/internal/model"
)

const (
	// MaxAttempts is the number of failed attempts that triggers a block.
	MaxAttempts = 3

	// BlockDuration is how long a block lasts once issued.
	BlockDuration = 180 * time.Second

	// casRetries bounds the compare-and-set loop under write contention.
	casRetries = 3
)

var (
	// ErrConflict is returned by AttemptStore.CompareAndSet when the stored
	// record no longer matches the expected value.
	ErrConflict = errors.New("login attempt record changed concurrently")
)

// BlockedError reports that an email is locked out until the given
// epoch-millisecond timestamp.
type BlockedError struct {
	Until int64
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, blocked until %d", e.Until)
}

// RemainingMinutes returns the minutes left in the block, rounded up.
func (e *BlockedError) RemainingMinutes(now time.Time) int {
	ms := e.Until - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int((ms + 59999) / 60000)
}

// AttemptStore persists one LoginAttempt record per normalized email.
type AttemptStore interface {
	// Get returns the record for email, or a zero record if none exists.
	Get(ctx context.Context, email string) (*model.LoginAttempt, error)

	// Reset unconditionally sets the record to {attempts: 0, blockedUntil: 0}.
	Reset(ctx context.Context, email string) error

	// CompareAndSet replaces the record only if the stored value still
	// matches expected (a zero expected record also matches an absent one).
	// Returns ErrConflict when the record changed concurrently.
	CompareAndSet(ctx context.Context, email string, expected, next model.LoginAttempt) error
}

// Throttle applies the lockout state machine on top of an AttemptStore.
type Throttle struct {
	store AttemptStore
	now   func() time.Time
}

// New creates a Throttle.
func New(store AttemptStore) *Throttle {
	return &Throttle{store: store, now: time.Now}
}

// NormalizeEmail lowercases and trims an email so every spelling of an
// address maps to one record.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Check reports whether email may attempt to sign in right now. It returns a
// BlockedError while an unexpired block is in place.
func (t *Throttle) Check(ctx context.Context, email string) error {
	rec, err := t.store.Get(ctx, NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("failed to read login attempts: %w", err)
	}
	if rec.BlockedUntil > t.now().UnixMilli() {
		return &BlockedError{Until: rec.BlockedUntil}
	}
	return nil
}

// Success resets the record after a successful sign-in, whatever its prior
// state.
func (t *Throttle) Success(ctx context.Context, email string) error {
	if err := t.store.Reset(ctx, NormalizeEmail(email)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// Failure records a failed sign-in attempt. It returns a BlockedError when
// the email is blocked, either already (no increment past the recorded
// block) or as a result of this attempt reaching the threshold. An expired
// block starts a fresh window at attempt 1. The read-modify-write runs as a
// bounded compare-and-set loop so concurrent failures cannot lose updates.
func (t *Throttle) Failure(ctx context.Context, email string) error {
	key := NormalizeEmail(email)

	for i := 0; i < casRetries; i++ {
		rec, err := t.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read login attempts: %w", err)
		}

		nowMs := t.now().UnixMilli()
		if rec.BlockedUntil > nowMs {
			return &BlockedError{Until: rec.BlockedUntil}
		}

		attempts := rec.Attempts + 1
		if rec.BlockedUntil != 0 {
			// Block expired: this failure opens a new window.
			attempts = 1
		}

		next := model.LoginAttempt{Email: key, Attempts: attempts}
		if attempts >= MaxAttempts {
			next.Attempts = MaxAttempts
			next.BlockedUntil = nowMs + BlockDuration.Milliseconds()
		}

		err = t.store.CompareAndSet(ctx, key, *rec, next)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to record login attempt: %w", err)
		}

		if next.BlockedUntil != 0 {
			return &BlockedError{Until: next.BlockedUntil}
		}
		return nil
	}

	return fmt.Errorf("failed to record login attempt: %w", ErrConflict)
}
