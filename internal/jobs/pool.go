package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/suggest/internal/metrics"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/sirupsen/logrus"
)

// Handler processes one job. A returned error makes the pool retry the job.
type Handler interface {
	HandleJob(ctx context.Context, job *queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *queue.Job) error

func (f HandlerFunc) HandleJob(ctx context.Context, job *queue.Job) error {
	return f(ctx, job)
}

// DeadLetterHandler is told about jobs that ran out of attempts. Handlers
// implement it to persist the dead-letter state of their work.
type DeadLetterHandler interface {
	JobDeadLettered(ctx context.Context, job *queue.Job) error
}

type PoolConfig struct {
	Workers        int
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff is the pause after a failed dequeue.
	Backoff time.Duration
}

// Pool runs a fixed number of workers that take jobs off the queue. Failed
// jobs are queued again until they run out of attempts, then dead-lettered.
type Pool struct {
	queue    queue.Queue
	handler  Handler
	cfg      PoolConfig
	inflight mapset.Set[string]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(q queue.Queue, handler Handler, cfg PoolConfig) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 2 * time.Minute
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	return &Pool{
		queue:    q,
		handler:  handler,
		cfg:      cfg,
		inflight: mapset.NewSet[string](),
	}
}

// Start launches the workers. They run until Stop is called or ctx is done.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.work(ctx, id)
		}(i)
	}

	logrus.Infof("started %d suggestion worker(s)", p.cfg.Workers)
}

// Stop cancels the workers and waits for the running attempts to return.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	logrus.Info("suggestion workers stopped")
}

func (p *Pool) work(ctx context.Context, id int) {
	log := logrus.WithField("worker", id)

	for {
		job, err := p.queue.Dequeue(ctx)
		if ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
			return
		}
		if err != nil {
			log.Errorf("failed to dequeue job: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.Backoff):
			}
			continue
		}

		p.run(ctx, job)
	}
}

func (p *Pool) run(ctx context.Context, job *queue.Job) {
	log := logrus.WithFields(logrus.Fields{
		"job":        job.ID,
		"suggestion": job.SuggestionID,
		"attempt":    job.Attempt + 1,
	})

	// a duplicate job for a suggestion already being worked on is dropped; the
	// running attempt requeues itself if it fails
	if !p.inflight.Add(job.SuggestionID) {
		log.Info("suggestion already in flight, dropping duplicate job")
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	start := time.Now()
	err := p.handle(attemptCtx, job)
	cancel()
	p.inflight.Remove(job.SuggestionID)
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.JobsTotal.WithLabelValues("succeeded").Inc()
		return
	}

	// the queue outlives the attempt context
	bg := context.Background()

	if ctx.Err() != nil {
		log.Warnf("shutting down, returning job to the queue: %v", err)
		if err := p.queue.Enqueue(bg, job); err != nil {
			log.Errorf("failed to return job to the queue: %v", err)
		}
		return
	}

	job.Attempt++
	job.LastError = err.Error()

	if job.Attempt < p.cfg.MaxAttempts {
		metrics.JobsTotal.WithLabelValues("retried").Inc()
		log.Warnf("job failed, retrying: %v", err)
		if err := p.queue.Enqueue(bg, job); err != nil {
			log.Errorf("failed to requeue job: %v", err)
		}
		return
	}

	metrics.JobsTotal.WithLabelValues("dead_lettered").Inc()
	log.Errorf("job failed %d time(s), dead-lettering: %v", job.Attempt, err)
	if err := p.queue.DeadLetter(bg, job); err != nil {
		log.Errorf("failed to dead-letter job: %v", err)
	}

	if h, ok := p.handler.(DeadLetterHandler); ok {
		if err := h.JobDeadLettered(bg, job); err != nil {
			log.Errorf("failed to mark job as dead-lettered: %v", err)
		}
	}
}

// handle turns a handler panic into an attempt failure.
func (p *Pool) handle(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return p.handler.HandleJob(ctx, job)
}
