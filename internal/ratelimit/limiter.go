// Package ratelimit gates suggestion submissions per (submitter, document) pair.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/emrgen/suggest/internal/store"
)

var ErrMissingIdentity = errors.New("submitter and document are required")

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterMinutes rounds the remaining wait up to whole minutes for display.
func (d Decision) RetryAfterMinutes() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Minutes()))
}

// Limiter checks the cooldown window against the stored last-submission time.
// Checking never writes; Reserve moves the window forward once a submission
// has been processed.
type Limiter struct {
	store store.RateLimitStore
	now   func() time.Time
}

func NewLimiter(store store.RateLimitStore, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, now: now}
}

// Check reports whether a new submission for the pair is allowed under cooldown.
func (l *Limiter) Check(ctx context.Context, submitterID, documentID string, cooldown time.Duration) (Decision, error) {
	if submitterID == "" || documentID == "" {
		return Decision{}, ErrMissingIdentity
	}

	record, err := l.store.GetRateLimit(ctx, submitterID, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return Decision{Allowed: true}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	elapsed := l.now().Sub(record.LastSubmissionAt)
	if elapsed >= cooldown {
		return Decision{Allowed: true}, nil
	}

	return Decision{Allowed: false, RetryAfter: cooldown - elapsed}, nil
}

// Reserve records now as the pair's last submission.
func (l *Limiter) Reserve(ctx context.Context, submitterID, documentID string) error {
	if submitterID == "" || documentID == "" {
		return ErrMissingIdentity
	}
	return l.store.TouchRateLimit(ctx, submitterID, documentID, l.now())
}
