package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emrgen/suggest/internal/badge"
	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/metrics"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/notify"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/ratelimit"
	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/validator"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	minDetailsLength = 10
	maxDetailsLength = 4000
)

// SubmitRequest is a user's request to improve a document.
type SubmitRequest struct {
	DocumentID  string         `json:"document_id"`
	SubmitterID string         `json:"submitter_id"`
	Category    model.Category `json:"category"`
	Details     string         `json:"details"`
}

func (r SubmitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.SubmitterID, validation.Required),
		validation.Field(&r.Category, validation.Required, validation.By(knownCategory)),
		validation.Field(&r.Details, validation.Required, validation.Length(minDetailsLength, maxDetailsLength)),
	)
}

func knownCategory(value interface{}) error {
	category, _ := value.(model.Category)
	if !category.Valid() {
		return errors.New("must be a valid value")
	}
	return nil
}

// SubmissionResult is the outcome of processing one suggestion.
type SubmissionResult struct {
	Suggestion      *model.Suggestion `json:"suggestion"`
	DocumentUpdated bool              `json:"document_updated"`
	Revision        *RevisionEntry    `json:"revision,omitempty"`
	Badges          []badge.Tier      `json:"badges"`
	NewBadges       []badge.Tier      `json:"new_badges"`
}

// PipelineConfig holds the non-settings knobs of the pipeline.
type PipelineConfig struct {
	// PublicURL prefixes document links in notifications.
	PublicURL string
	// StoreTimeout bounds the apply transaction.
	StoreTimeout time.Duration
	Now          func() time.Time
}

// SuggestionService accepts suggestions and processes them off the request path:
// judge the change, apply it atomically with its revision, then update the
// cooldown, badges and notifications.
type SuggestionService struct {
	compress  compress.Compress
	store     store.Store
	queue     queue.Queue
	judge     validator.Validator
	notifier  notify.Notifier
	settings  SettingsProvider
	limiter   *ratelimit.Limiter
	publicURL string
	timeout   time.Duration
	now       func() time.Time
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(
	compress compress.Compress,
	store store.Store,
	queue queue.Queue,
	judge validator.Validator,
	notifier notify.Notifier,
	settings SettingsProvider,
	cfg PipelineConfig,
) *SuggestionService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SuggestionService{
		compress:  compress,
		store:     store,
		queue:     queue,
		judge:     judge,
		notifier:  notifier,
		settings:  settings,
		limiter:   ratelimit.NewLimiter(store, now),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		timeout:   timeout,
		now:       now,
	}
}

// Submit validates a submission, checks the cooldown and queues it. The
// returned suggestion is pending.
func (s *SuggestionService) Submit(ctx context.Context, req SubmitRequest) (*model.Suggestion, error) {
	if err := req.Validate(); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, invalid(err)
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if _, err := s.store.GetDocument(ctx, req.DocumentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, req.DocumentID)
		}
		return nil, err
	}

	decision, err := s.limiter.Check(ctx, req.SubmitterID, req.DocumentID, settings.Cooldown)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		metrics.SubmissionsTotal.WithLabelValues("rate_limited").Inc()
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	suggestion := &model.Suggestion{
		ID:          uuid.NewString(),
		DocumentID:  req.DocumentID,
		SubmitterID: req.SubmitterID,
		Category:    req.Category,
		Details:     strings.TrimSpace(req.Details),
		Approval:    model.ApprovalPending,
		Status:      model.StatusPending,
		ScheduledAt: s.now(),
	}
	if err := s.store.CreateSuggestion(ctx, suggestion); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, suggestion.ID); err != nil {
		logrus.Errorf("suggestion %s saved but not queued: %v", suggestion.ID, err)
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	logrus.WithFields(logrus.Fields{
		"suggestion": suggestion.ID,
		"document":   suggestion.DocumentID,
		"submitter":  suggestion.SubmitterID,
	}).Info("suggestion queued")

	return suggestion, nil
}

func (s *SuggestionService) enqueue(ctx context.Context, suggestionID string) error {
	return s.queue.Enqueue(ctx, &queue.Job{
		ID:           uuid.NewString(),
		SuggestionID: suggestionID,
		EnqueuedAt:   s.now(),
	})
}

// Requeue queues a pending suggestion again with a fresh attempt budget and
// clears its dead-letter mark.
func (s *SuggestionService) Requeue(ctx context.Context, suggestionID string) error {
	suggestion, err := s.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return err
	}

	if suggestion.Status != model.StatusPending {
		return ErrSuggestionNotPending
	}

	if err := s.store.ScheduleSuggestion(ctx, suggestion.ID, s.now()); err != nil {
		return err
	}

	return s.enqueue(ctx, suggestion.ID)
}

// RequeueStale queues a suggestion whose job was lost. Dead-lettered
// suggestions and those scheduled at or after scheduledBefore are left alone;
// it reports whether a job was queued.
func (s *SuggestionService) RequeueStale(ctx context.Context, suggestionID string, scheduledBefore time.Time) (bool, error) {
	ok, err := s.store.RescheduleStaleSuggestion(ctx, suggestionID, scheduledBefore, s.now())
	if err != nil || !ok {
		return false, err
	}

	if err := s.enqueue(ctx, suggestionID); err != nil {
		return false, err
	}

	return true, nil
}

// JobDeadLettered marks the suggestion of a job that ran out of attempts, so
// only an explicit Requeue brings it back.
func (s *SuggestionService) JobDeadLettered(ctx context.Context, job *queue.Job) error {
	err := s.store.DeadLetterSuggestion(ctx, job.SuggestionID, s.now())
	if errors.Is(err, store.ErrSuggestionNotPending) {
		return nil
	}
	return err
}

// GetSuggestion retrieves a suggestion.
func (s *SuggestionService) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	suggestion, err := s.store.GetSuggestion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
	}
	return suggestion, err
}

// ListSuggestions lists a submitter's suggestions, newest first. Page is 1-based.
func (s *SuggestionService) ListSuggestions(ctx context.Context, submitterID string, page, pageSize int) ([]*model.Suggestion, int64, error) {
	if err := validation.Validate(submitterID, validation.Required); err != nil {
		return nil, 0, invalid(fmt.Errorf("submitter_id: %w", err))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return s.store.ListSuggestions(ctx, submitterID, (page-1)*pageSize, pageSize)
}

// HandleJob processes the suggestion a job points at. Returned errors are
// infrastructure failures the queue should retry.
func (s *SuggestionService) HandleJob(ctx context.Context, job *queue.Job) error {
	if err := s.store.TouchSuggestion(ctx, job.SuggestionID, s.now()); err != nil {
		return err
	}

	_, err := s.Process(ctx, job.SuggestionID)
	return err
}

// Process runs the pipeline for one pending suggestion. Judge outages and apply
// failures end in a terminal rejected suggestion; only infrastructure errors
// (store unreachable, document missing, concurrent write, judge deferred) are returned.
// Processing an already finalized suggestion has no side effects.
func (s *SuggestionService) Process(ctx context.Context, suggestionID string) (*SubmissionResult, error) {
	suggestion, err := s.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"suggestion": suggestion.ID,
		"document":   suggestion.DocumentID,
		"submitter":  suggestion.SubmitterID,
	})

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if suggestion.Status.Terminal() {
		log.Infof("suggestion already processed with status %s", suggestion.Status)
		return s.settledResult(ctx, suggestion, settings)
	}

	// another submission for the pair may have been processed since this one was queued
	decision, err := s.limiter.Check(ctx, suggestion.SubmitterID, suggestion.DocumentID, settings.Cooldown)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		log.Warnf("cooldown violated at processing time, retry in %d minute(s)", decision.RetryAfterMinutes())
		return s.rejectRateLimited(ctx, suggestion, decision, settings)
	}

	doc, err := s.store.GetDocument(ctx, suggestion.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, suggestion.DocumentID)
	}
	if err != nil {
		return nil, err
	}

	verdict := s.judge.Validate(ctx, validator.Request{
		DocumentTitle:   doc.Title,
		DocumentContent: doc.Content,
		Category:        suggestion.Category,
		Details:         suggestion.Details,
		SubmitterID:     suggestion.SubmitterID,
	})
	if verdict.Deferred {
		return nil, fmt.Errorf("%w: %s", ErrJudgeDeferred, verdict.Reason)
	}

	final, revision, err := s.commit(ctx, suggestion, doc, verdict)
	if errors.Is(err, store.ErrSuggestionNotPending) {
		log.Info("suggestion finalized by another worker")
		current, err := s.GetSuggestion(ctx, suggestion.ID)
		if err != nil {
			return nil, err
		}
		return s.settledResult(ctx, current, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("commit suggestion %s: %w", suggestion.ID, err)
	}

	metrics.OutcomesTotal.WithLabelValues(string(final.Status)).Inc()
	log.WithField("status", final.Status).Info("suggestion processed")

	return s.afterCommit(ctx, final, doc, revision, settings), nil
}

// commit writes the verdict, and for an approved change the document content and
// its revision, in one transaction. A change that cannot be written is rolled
// back to a savepoint and the suggestion is recorded as rejected instead.
func (s *SuggestionService) commit(ctx context.Context, suggestion *model.Suggestion, doc *model.Document, verdict validator.Verdict) (*model.Suggestion, *model.Revision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	final := *suggestion
	final.ProcessedAt = &now
	final.RawResponse = verdict.RawResponse
	final.ProposedDiff = verdict.Diff
	final.Description = verdict.Description

	var revision *model.Revision
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		switch {
		case !verdict.IsValid:
			reason := verdict.Reason
			if reason == "" {
				reason = "rejected by the validator"
			}
			final.Approval = model.ApprovalRejected
			final.Status = model.StatusRejected
			final.RejectionReason = &reason

		case verdict.UpdatedContent == nil:
			final.Approval = model.ApprovalApproved
			final.Status = model.StatusApproved

		default:
			applyErr := tx.Transaction(ctx, func(tx store.Store) error {
				var err error
				revision, err = s.apply(ctx, tx, doc, &final, *verdict.UpdatedContent)
				return err
			})
			if errors.Is(applyErr, store.ErrVersionConflict) || ctx.Err() != nil {
				return applyErr
			}

			if applyErr != nil {
				logrus.Warnf("approved suggestion %s could not be applied: %v", final.ID, applyErr)
				reason := fmt.Sprintf("system error: the approved change could not be applied: %v", applyErr)
				revision = nil
				final.Approval = model.ApprovalRejected
				final.Status = model.StatusApprovedRejectedOnApply
				final.RejectionReason = &reason
				break
			}

			final.Approval = model.ApprovalApproved
			final.Status = model.StatusApprovedApplied
			final.Applied = true
			final.AppliedAt = &now
		}

		return tx.FinalizeSuggestion(ctx, &final)
	})
	if err != nil {
		return nil, nil, err
	}

	return &final, revision, nil
}

func (s *SuggestionService) apply(ctx context.Context, tx store.Store, doc *model.Document, suggestion *model.Suggestion, content string) (*model.Revision, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	description := fmt.Sprintf("Applied %s suggestion", suggestion.Category.Label())
	if suggestion.Description != nil && *suggestion.Description != "" {
		description = *suggestion.Description
	}

	return writeChange(ctx, tx, s.compress, doc, revisionInput{
		DocumentID:   doc.ID,
		SuggestionID: &suggestion.ID,
		ActorID:      suggestion.SubmitterID,
		Kind:         model.ChangeKindSuggestion,
		Description:  description,
		Before:       doc.Content,
		After:        content,
	})
}

// rejectRateLimited closes a suggestion that lost the cooldown race without
// calling the judge. The cooldown is not moved.
func (s *SuggestionService) rejectRateLimited(ctx context.Context, suggestion *model.Suggestion, decision ratelimit.Decision, settings Settings) (*SubmissionResult, error) {
	now := s.now()
	reason := fmt.Sprintf("rate limited: another suggestion for this document was processed, retry in %d minute(s)", decision.RetryAfterMinutes())

	final := *suggestion
	final.Approval = model.ApprovalRejected
	final.Status = model.StatusRejected
	final.RejectionReason = &reason
	final.ProcessedAt = &now

	err := s.store.FinalizeSuggestion(ctx, &final)
	if errors.Is(err, store.ErrSuggestionNotPending) {
		current, err := s.GetSuggestion(ctx, suggestion.ID)
		if err != nil {
			return nil, err
		}
		return s.settledResult(ctx, current, settings)
	}
	if err != nil {
		return nil, err
	}

	metrics.OutcomesTotal.WithLabelValues(string(final.Status)).Inc()
	return s.settledResult(ctx, &final, settings)
}

// afterCommit runs the best-effort steps that follow a committed verdict.
// Their failures are logged and never undo the commit.
func (s *SuggestionService) afterCommit(ctx context.Context, suggestion *model.Suggestion, doc *model.Document, revision *model.Revision, settings Settings) *SubmissionResult {
	log := logrus.WithField("suggestion", suggestion.ID)

	if err := s.limiter.Reserve(ctx, suggestion.SubmitterID, suggestion.DocumentID); err != nil {
		log.Errorf("failed to update cooldown: %v", err)
	}

	result := &SubmissionResult{
		Suggestion:      suggestion,
		DocumentUpdated: suggestion.Applied,
		Badges:          []badge.Tier{},
		NewBadges:       []badge.Tier{},
	}

	if revision != nil {
		entry, err := newRevisionEntry(revision)
		if err != nil {
			log.Errorf("failed to decode revision %s: %v", revision.ID, err)
		}
		result.Revision = entry
	}

	count, err := s.store.CountApprovedSuggestions(ctx, suggestion.SubmitterID)
	if err != nil {
		log.Errorf("failed to count approved suggestions: %v", err)
	} else {
		result.Badges = badge.Evaluate(count, count, settings.Thresholds).Unlocked
		if suggestion.Approval == model.ApprovalApproved {
			result.NewBadges = s.award(ctx, suggestion, result.Badges)
		}
	}

	if suggestion.Applied {
		err := s.notifier.SuggestionApproved(ctx, notify.SuggestionApproved{
			SubmitterID:  suggestion.SubmitterID,
			SuggestionID: suggestion.ID,
			DocumentID:   doc.ID,
			Title:        doc.Title,
			Link:         fmt.Sprintf("%s/documents/%s", s.publicURL, doc.ID),
		})
		if err != nil {
			log.Errorf("failed to send approval notification: %v", err)
		}
	}

	for _, tier := range result.NewBadges {
		err := s.notifier.AchievementUnlocked(ctx, notify.AchievementUnlocked{
			SubmitterID: suggestion.SubmitterID,
			Tier:        string(tier),
			Description: tier.Description(settings.Thresholds[tier]),
		})
		if err != nil {
			log.Errorf("failed to send achievement notification: %v", err)
		}
	}

	return result
}

// award records every unlocked tier and returns those not announced before.
// The count is read after commit, so the last of two concurrent approvals sees
// both, and the award row keeps a tier from being announced twice.
func (s *SuggestionService) award(ctx context.Context, suggestion *model.Suggestion, unlocked []badge.Tier) []badge.Tier {
	awarded := make([]badge.Tier, 0)
	for _, tier := range unlocked {
		ok, err := s.store.AwardBadge(ctx, &model.BadgeAward{
			SubmitterID:  suggestion.SubmitterID,
			Tier:         string(tier),
			SuggestionID: suggestion.ID,
		})
		if err != nil {
			logrus.Errorf("failed to record %s badge for %s: %v", tier, suggestion.SubmitterID, err)
			continue
		}
		if ok {
			awarded = append(awarded, tier)
		}
	}
	return awarded
}

// settledResult describes a suggestion that needs no further work.
func (s *SuggestionService) settledResult(ctx context.Context, suggestion *model.Suggestion, settings Settings) (*SubmissionResult, error) {
	count, err := s.store.CountApprovedSuggestions(ctx, suggestion.SubmitterID)
	if err != nil {
		return nil, err
	}

	return &SubmissionResult{
		Suggestion:      suggestion,
		DocumentUpdated: false,
		Badges:          badge.Evaluate(count, count, settings.Thresholds).Unlocked,
		NewBadges:       []badge.Tier{},
	}, nil
}
