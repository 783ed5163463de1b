package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/suggest/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a document changed between read and write.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrSuggestionNotPending is returned when finalizing a suggestion that already has a verdict.
	ErrSuggestionNotPending = errors.New("suggestion is not pending")
	// ErrRevisionInactive is returned when deactivating a revision that was already rolled back.
	ErrRevisionInactive = errors.New("revision is already inactive")
)

type Store interface {
	DocumentStore
	SuggestionStore
	RevisionStore
	RateLimitStore
	BadgeStore
	// Transaction runs f inside a transaction. Calling it on a transactional
	// store opens a savepoint, so a failing inner f rolls back only its own writes.
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type DocumentStore interface {
	// CreateDocument creates a new document.
	CreateDocument(ctx context.Context, doc *model.Document) error
	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// UpdateDocumentContent writes content if the document is still at expectedVersion.
	UpdateDocumentContent(ctx context.Context, id string, expectedVersion int64, content string) error
}

type SuggestionStore interface {
	// CreateSuggestion inserts a new suggestion.
	CreateSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	// GetSuggestion retrieves a suggestion by ID.
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)
	// FinalizeSuggestion writes the verdict fields of a pending suggestion.
	FinalizeSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	// ListSuggestions lists the suggestions of a submitter, newest first.
	ListSuggestions(ctx context.Context, submitterID string, offset, limit int) ([]*model.Suggestion, int64, error)
	// CountApprovedSuggestions counts the approved suggestions of a submitter.
	CountApprovedSuggestions(ctx context.Context, submitterID string) (int64, error)
	// CountPendingSuggestions counts suggestions still pending that were created before the given time.
	CountPendingSuggestions(ctx context.Context, createdBefore time.Time) (int64, error)
	// ListPendingSuggestions lists up to limit pending suggestions that are not
	// dead-lettered and were last scheduled before the given time, oldest first.
	ListPendingSuggestions(ctx context.Context, scheduledBefore time.Time, limit int) ([]*model.Suggestion, error)
	// ScheduleSuggestion stamps a pending suggestion as queued at the given time
	// and clears its dead-letter mark.
	ScheduleSuggestion(ctx context.Context, id string, at time.Time) error
	// RescheduleStaleSuggestion stamps a pending suggestion as queued only if it
	// is not dead-lettered and was last scheduled before scheduledBefore. It
	// reports whether the row matched.
	RescheduleStaleSuggestion(ctx context.Context, id string, scheduledBefore, at time.Time) (bool, error)
	// TouchSuggestion moves the schedule time of a pending suggestion forward.
	TouchSuggestion(ctx context.Context, id string, at time.Time) error
	// DeadLetterSuggestion marks a pending suggestion whose job ran out of attempts.
	DeadLetterSuggestion(ctx context.Context, id string, at time.Time) error
}

// RevisionFilter selects a page of a document's history.
type RevisionFilter struct {
	DocumentID string
	ActiveOnly bool
	Offset     int
	Limit      int
}

type RevisionStore interface {
	// CreateRevision appends a revision to its document's history and assigns its sequence.
	CreateRevision(ctx context.Context, revision *model.Revision) error
	// GetRevision retrieves a revision by ID.
	GetRevision(ctx context.Context, id string) (*model.Revision, error)
	// ListRevisions lists revisions newest first, with their suggestions loaded.
	ListRevisions(ctx context.Context, filter RevisionFilter) ([]*model.Revision, int64, error)
	// DeactivateRevision marks an active revision as rolled back.
	DeactivateRevision(ctx context.Context, id string, actorID string, at time.Time) error
}

type RateLimitStore interface {
	// GetRateLimit retrieves the record of a (submitter, document) pair.
	GetRateLimit(ctx context.Context, submitterID, documentID string) (*model.RateLimitRecord, error)
	// TouchRateLimit creates or moves forward the record of a pair.
	TouchRateLimit(ctx context.Context, submitterID, documentID string, at time.Time) error
}

type BadgeStore interface {
	// AwardBadge records a tier for a submitter and reports whether it is new.
	AwardBadge(ctx context.Context, award *model.BadgeAward) (bool, error)
}
