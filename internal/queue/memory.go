package queue

import (
	"context"
	"sync"
)

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue is a bounded in-process queue for single-node deployments and tests.
type MemoryQueue struct {
	jobs chan *Job
	mu   sync.Mutex
	dead []*Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		jobs: make(chan *Job, capacity),
	}
}

func (m *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	select {
	case m.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-m.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MemoryQueue) DeadLetter(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = append(m.dead, job)
	return nil
}

func (m *MemoryQueue) DeadLetters(ctx context.Context) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Job(nil), m.dead...), nil
}

func (m *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(m.jobs)), nil
}
