package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/suggest/internal/ratelimit"
	"github.com/emrgen/suggest/internal/store"
)

var (
	// ErrInvalidInput is returned when a request fails validation; no state is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDocumentNotFound is returned when the target document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrSuggestionNotFound is returned when a suggestion id matches nothing.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrSuggestionNotPending is returned when requeueing a suggestion that already has a verdict.
	ErrSuggestionNotPending = store.ErrSuggestionNotPending
	// ErrRevisionNotFound is returned when a revision id matches nothing.
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrRevisionInactive is returned when rolling back a revision that was already rolled back.
	ErrRevisionInactive = store.ErrRevisionInactive
	// ErrJudgeDeferred is returned when the judge was not called for lack of
	// capacity; the job is retried.
	ErrJudgeDeferred = errors.New("judge call deferred")
	// ErrEmptyContent is the apply failure for an approved verdict with blank content.
	ErrEmptyContent = errors.New("replacement content is empty")
)

// RateLimitedError is returned when a submission falls inside the cooldown window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	minutes := ratelimit.Decision{RetryAfter: e.RetryAfter}.RetryAfterMinutes()
	return fmt.Sprintf("too many suggestions for this document, retry in %d minute(s)", minutes)
}

// RetryAfterMinutes is the wait rounded up to whole minutes.
func (e *RateLimitedError) RetryAfterMinutes() int {
	return ratelimit.Decision{RetryAfter: e.RetryAfter}.RetryAfterMinutes()
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
