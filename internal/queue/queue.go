package queue

import (
	"context"
	"errors"
	"time"
)

var (
	SuggestionJobQueue      = "suggestion:jobs:queue"
	SuggestionDeadLetterSet = "suggestion:jobs:dead"
)

var ErrQueueClosed = errors.New("queue closed")

// Job asks a worker to process one pending suggestion.
type Job struct {
	ID           string    `json:"id"`
	SuggestionID string    `json:"suggestion_id"`
	Attempt      int       `json:"attempt"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	LastError    string    `json:"last_error,omitempty"`
}

type Queue interface {
	// Enqueue appends a job to the queue.
	Enqueue(ctx context.Context, job *Job) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (*Job, error)
	// DeadLetter parks a job that exhausted its attempts.
	DeadLetter(ctx context.Context, job *Job) error
	// DeadLetters lists parked jobs, oldest first.
	DeadLetters(ctx context.Context) ([]*Job, error)
	// Len returns the number of queued jobs.
	Len(ctx context.Context) (int64, error)
}
