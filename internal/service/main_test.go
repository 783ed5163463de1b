package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/emrgen/suggest/internal/badge"
	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/notify"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/tester"
	"github.com/emrgen/suggest/internal/validator"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()

	os.Exit(code)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recorder struct {
	mu           sync.Mutex
	approved     []notify.SuggestionApproved
	achievements []notify.AchievementUnlocked
}

func (r *recorder) SuggestionApproved(ctx context.Context, event notify.SuggestionApproved) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approved = append(r.approved, event)
	return nil
}

func (r *recorder) AchievementUnlocked(ctx context.Context, event notify.AchievementUnlocked) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.achievements = append(r.achievements, event)
	return nil
}

// judge returns a fixed verdict and counts calls.
type judge struct {
	mu      sync.Mutex
	verdict validator.Verdict
	calls   int
	hook    func()
}

func (j *judge) Validate(ctx context.Context, req validator.Request) validator.Verdict {
	j.mu.Lock()
	j.calls++
	hook := j.hook
	j.mu.Unlock()

	if hook != nil {
		hook()
	}
	return validator.Normalize(req, j.verdict)
}

func (j *judge) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func approve(content string) validator.Verdict {
	return validator.Verdict{
		IsValid:        true,
		UpdatedContent: &content,
		RawResponse:    `{"is_valid":true}`,
	}
}

type fixture struct {
	db          *gorm.DB
	store       *store.GormStore
	queue       *queue.MemoryQueue
	judge       *judge
	notifier    *recorder
	clock       *clock
	suggestions *SuggestionService
	revisions   *RevisionService
	documents   *DocumentService
}

func newFixture(t *testing.T, codec compress.Compress) *fixture {
	t.Helper()

	db := tester.TestDB(t)
	f := &fixture{
		db:       db,
		store:    store.NewGormStore(db),
		queue:    queue.NewMemoryQueue(64),
		judge:    &judge{},
		notifier: &recorder{},
		clock:    &clock{t: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)},
	}

	settings := StaticSettings{
		Cooldown:   time.Hour,
		Thresholds: badge.Thresholds{badge.TierBronze: 1, badge.TierSilver: 2},
	}

	f.suggestions = NewSuggestionService(codec, f.store, f.queue, f.judge, f.notifier, settings, PipelineConfig{
		PublicURL: "https://learn.example.com/",
		Now:       f.clock.Now,
	})
	f.revisions = NewRevisionService(codec, f.store, f.clock.Now)
	f.documents = NewDocumentService(codec, f.store)

	return f
}

func (f *fixture) document(t *testing.T, content string) *model.Document {
	return tester.NewDocument(t, f.db, "Foxes", content)
}

// submitAndProcess queues a suggestion and runs the job a worker would run.
func (f *fixture) submitAndProcess(t *testing.T, docID, submitter string) (*SubmissionResult, error) {
	t.Helper()

	suggestion, err := f.suggestions.Submit(context.TODO(), SubmitRequest{
		DocumentID:  docID,
		SubmitterID: submitter,
		Category:    model.CategoryCorrection,
		Details:     "fix grammar in the first sentence",
	})
	if err != nil {
		return nil, err
	}

	job, err := f.queue.Dequeue(context.TODO())
	if err != nil {
		return nil, err
	}
	if job.SuggestionID != suggestion.ID {
		t.Fatalf("dequeued %s, expected %s", job.SuggestionID, suggestion.ID)
	}

	return f.suggestions.Process(context.TODO(), job.SuggestionID)
}

func (f *fixture) revisionCount(t *testing.T, docID string) int64 {
	var count int64
	if err := f.db.Model(&model.Revision{}).Where("document_id = ?", docID).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	return count
}
