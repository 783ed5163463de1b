package jobs

import (
	"context"
	"time"

	"github.com/emrgen/suggest/internal/metrics"
	"github.com/emrgen/suggest/internal/store"
	"github.com/sirupsen/logrus"
)

// PendingReportTask publishes the number of suggestions stuck in pending.
type PendingReportTask struct {
	store      store.SuggestionStore
	schedule   string
	staleAfter time.Duration
	now        func() time.Time
}

func NewPendingReportTask(store store.SuggestionStore, schedule string, staleAfter time.Duration) *PendingReportTask {
	return &PendingReportTask{
		store:      store,
		schedule:   schedule,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (p *PendingReportTask) Name() string {
	return "pending_report"
}

func (p *PendingReportTask) Schedule() string {
	return p.schedule
}

func (p *PendingReportTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := p.store.CountPendingSuggestions(ctx, p.now().Add(-p.staleAfter))
	if err != nil {
		logrus.Errorf("failed to count pending suggestions: %v", err)
		return
	}

	metrics.PendingSuggestions.Set(float64(count))
	if count > 0 {
		logrus.Warnf("%d suggestion(s) pending for more than %s", count, p.staleAfter)
	}
}

// StaleRequeuer queues a suggestion again if it is still stale.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context, suggestionID string, scheduledBefore time.Time) (bool, error)
}

// Backlog reports how many jobs wait in the queue.
type Backlog interface {
	Len(ctx context.Context) (int64, error)
}

// StaleRequeueTask queues again suggestions left pending past staleAfter, such
// as those whose jobs were lost with an in-memory queue on restart. It does
// nothing while the queue still holds jobs, and never touches dead-lettered
// suggestions.
type StaleRequeueTask struct {
	store      store.SuggestionStore
	requeuer   StaleRequeuer
	backlog    Backlog
	schedule   string
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewStaleRequeueTask(store store.SuggestionStore, requeuer StaleRequeuer, backlog Backlog, schedule string, staleAfter time.Duration) *StaleRequeueTask {
	return &StaleRequeueTask{
		store:      store,
		requeuer:   requeuer,
		backlog:    backlog,
		schedule:   schedule,
		staleAfter: staleAfter,
		batch:      100,
		now:        time.Now,
	}
}

func (s *StaleRequeueTask) Name() string {
	return "stale_requeue"
}

func (s *StaleRequeueTask) Schedule() string {
	return s.schedule
}

func (s *StaleRequeueTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queued, err := s.backlog.Len(ctx)
	if err != nil {
		logrus.Errorf("failed to read queue length: %v", err)
		return
	}
	if queued > 0 {
		logrus.Debugf("%d job(s) still queued, skipping stale sweep", queued)
		return
	}

	cutoff := s.now().Add(-s.staleAfter)
	stale, err := s.store.ListPendingSuggestions(ctx, cutoff, s.batch)
	if err != nil {
		logrus.Errorf("failed to list stale suggestions: %v", err)
		return
	}

	for _, suggestion := range stale {
		ok, err := s.requeuer.RequeueStale(ctx, suggestion.ID, cutoff)
		if err != nil {
			logrus.Warnf("failed to requeue suggestion %s: %v", suggestion.ID, err)
			continue
		}
		if ok {
			logrus.Infof("requeued stale suggestion %s", suggestion.ID)
		}
	}
}
