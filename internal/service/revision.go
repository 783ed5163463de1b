package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/metrics"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/textdiff"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// revisionInput describes a content change about to be committed.
type revisionInput struct {
	DocumentID   string
	SuggestionID *string
	ActorID      string
	Kind         model.ChangeKind
	Description  string
	Before       string
	After        string
	RevertsID    *string
}

// writeChange moves the document from its read version to after and records
// the matching revision, both through tx. The content write goes first so that
// a concurrent writer is detected by the version check before any history row
// is inserted.
func writeChange(ctx context.Context, tx store.Store, codec compress.Compress, doc *model.Document, in revisionInput) (*model.Revision, error) {
	if err := tx.UpdateDocumentContent(ctx, doc.ID, doc.Version, in.After); err != nil {
		return nil, err
	}

	revision, err := buildRevision(codec, in)
	if err != nil {
		return nil, err
	}

	if err := tx.CreateRevision(ctx, revision); err != nil {
		return nil, err
	}

	doc.Content = in.After
	doc.Version++

	return revision, nil
}

func buildRevision(codec compress.Compress, in revisionInput) (*model.Revision, error) {
	unified, err := textdiff.Unified(in.DocumentID, in.Before, in.After)
	if err != nil {
		return nil, fmt.Errorf("diff content: %w", err)
	}

	added, removed, err := textdiff.Stat(unified)
	if err != nil {
		logrus.Warnf("could not count diff lines of document %s: %v", in.DocumentID, err)
	}

	before, err := codec.Encode([]byte(in.Before))
	if err != nil {
		return nil, err
	}

	after, err := codec.Encode([]byte(in.After))
	if err != nil {
		return nil, err
	}

	return &model.Revision{
		ID:            uuid.NewString(),
		DocumentID:    in.DocumentID,
		SuggestionID:  in.SuggestionID,
		ActorID:       in.ActorID,
		Kind:          in.Kind,
		Description:   in.Description,
		Diff:          unified,
		LinesAdded:    added,
		LinesRemoved:  removed,
		BeforeContent: before,
		AfterContent:  after,
		Compression:   codec.Name(),
		Active:        true,
		RevertsID:     in.RevertsID,
	}, nil
}

// snapshots decodes the before and after content of a revision with the codec
// it was written with.
func snapshots(revision *model.Revision) (before, after string, err error) {
	codec, err := compress.New(revision.Compression)
	if err != nil {
		return "", "", err
	}

	b, err := codec.Decode(revision.BeforeContent)
	if err != nil {
		return "", "", fmt.Errorf("decode before snapshot: %w", err)
	}

	a, err := codec.Decode(revision.AfterContent)
	if err != nil {
		return "", "", fmt.Errorf("decode after snapshot: %w", err)
	}

	return string(b), string(a), nil
}

// SuggestionSummary is the part of a suggestion shown next to its revision.
type SuggestionSummary struct {
	ID          string                 `json:"id"`
	SubmitterID string                 `json:"submitter_id"`
	Category    model.Category         `json:"category"`
	Details     string                 `json:"details"`
	Status      model.SuggestionStatus `json:"status"`
}

// RevisionEntry is a revision with decoded snapshots.
type RevisionEntry struct {
	ID            string             `json:"id"`
	DocumentID    string             `json:"document_id"`
	Sequence      int64              `json:"sequence"`
	Kind          model.ChangeKind   `json:"kind"`
	ActorID       string             `json:"actor_id"`
	Description   string             `json:"description"`
	Diff          string             `json:"diff"`
	LinesAdded    int32              `json:"lines_added"`
	LinesRemoved  int32              `json:"lines_removed"`
	BeforeContent string             `json:"before_content"`
	AfterContent  string             `json:"after_content"`
	Active        bool               `json:"active"`
	RevertsID     *string            `json:"reverts_id,omitempty"`
	RolledBackAt  *time.Time         `json:"rolled_back_at,omitempty"`
	RolledBackBy  *string            `json:"rolled_back_by,omitempty"`
	Suggestion    *SuggestionSummary `json:"suggestion,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func newRevisionEntry(revision *model.Revision) (*RevisionEntry, error) {
	before, after, err := snapshots(revision)
	if err != nil {
		return nil, err
	}

	entry := &RevisionEntry{
		ID:            revision.ID,
		DocumentID:    revision.DocumentID,
		Sequence:      revision.Sequence,
		Kind:          revision.Kind,
		ActorID:       revision.ActorID,
		Description:   revision.Description,
		Diff:          revision.Diff,
		LinesAdded:    revision.LinesAdded,
		LinesRemoved:  revision.LinesRemoved,
		BeforeContent: before,
		AfterContent:  after,
		Active:        revision.Active,
		RevertsID:     revision.RevertsID,
		RolledBackAt:  revision.RolledBackAt,
		RolledBackBy:  revision.RolledBackBy,
		CreatedAt:     revision.CreatedAt,
	}

	if s := revision.Suggestion; s != nil {
		entry.Suggestion = &SuggestionSummary{
			ID:          s.ID,
			SubmitterID: s.SubmitterID,
			Category:    s.Category,
			Details:     s.Details,
			Status:      s.Status,
		}
	}

	return entry, nil
}

// ListRevisionsRequest selects a page of a document's history. Page is 1-based.
type ListRevisionsRequest struct {
	DocumentID string
	Page       int
	PageSize   int
	ActiveOnly bool
}

// RevisionPage is one page of history, newest first.
type RevisionPage struct {
	Revisions []*RevisionEntry `json:"revisions"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Total     int64            `json:"total"`
}

// RollbackResult describes a completed rollback.
type RollbackResult struct {
	Document *model.Document `json:"document"`
	Reverted *RevisionEntry  `json:"reverted"`
	Revision *RevisionEntry  `json:"revision"`
}

// RevisionService reads document history and rolls back revisions.
type RevisionService struct {
	store    store.Store
	compress compress.Compress
	now      func() time.Time
}

func NewRevisionService(compress compress.Compress, store store.Store, now func() time.Time) *RevisionService {
	if now == nil {
		now = time.Now
	}
	return &RevisionService{
		store:    store,
		compress: compress,
		now:      now,
	}
}

// GetRevision returns one revision with decoded snapshots.
func (r *RevisionService) GetRevision(ctx context.Context, id string) (*RevisionEntry, error) {
	revision, err := r.store.GetRevision(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRevisionNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return newRevisionEntry(revision)
}

// ListRevisions returns a page of a document's revisions, newest first.
func (r *RevisionService) ListRevisions(ctx context.Context, req ListRevisionsRequest) (*RevisionPage, error) {
	if err := validation.Validate(req.DocumentID, validation.Required); err != nil {
		return nil, invalid(fmt.Errorf("document_id: %w", err))
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	revisions, total, err := r.store.ListRevisions(ctx, store.RevisionFilter{
		DocumentID: req.DocumentID,
		ActiveOnly: req.ActiveOnly,
		Offset:     (req.Page - 1) * req.PageSize,
		Limit:      req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	page := &RevisionPage{
		Revisions: make([]*RevisionEntry, 0, len(revisions)),
		Page:      req.Page,
		PageSize:  req.PageSize,
		Total:     total,
	}
	for _, revision := range revisions {
		entry, err := newRevisionEntry(revision)
		if err != nil {
			return nil, err
		}
		page.Revisions = append(page.Revisions, entry)
	}

	return page, nil
}

// Rollback restores the document to the content before revisionID, marks that
// revision inactive and records the restore as a new rollback revision. A
// revision can be rolled back once; to undo a rollback, roll back the rollback
// revision.
func (r *RevisionService) Rollback(ctx context.Context, revisionID, actorID string) (*RollbackResult, error) {
	err := validation.Errors{
		"revision_id": validation.Validate(revisionID, validation.Required),
		"actor_id":    validation.Validate(actorID, validation.Required),
	}.Filter()
	if err != nil {
		return nil, invalid(err)
	}

	var result RollbackResult
	err = r.store.Transaction(ctx, func(tx store.Store) error {
		target, err := tx.GetRevision(ctx, revisionID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRevisionNotFound, revisionID)
		}
		if err != nil {
			return err
		}

		if !target.Active {
			return ErrRevisionInactive
		}

		doc, err := tx.GetDocument(ctx, target.DocumentID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, target.DocumentID)
		}
		if err != nil {
			return err
		}

		restored, _, err := snapshots(target)
		if err != nil {
			return err
		}

		now := r.now()
		if err := tx.DeactivateRevision(ctx, target.ID, actorID, now); err != nil {
			return err
		}
		target.Active = false
		target.RolledBackAt = &now
		target.RolledBackBy = &actorID

		revision, err := writeChange(ctx, tx, r.compress, doc, revisionInput{
			DocumentID:  doc.ID,
			ActorID:     actorID,
			Kind:        model.ChangeKindRollback,
			Description: fmt.Sprintf("Rolled back revision #%d (%s)", target.Sequence, target.ID),
			Before:      doc.Content,
			After:       restored,
			RevertsID:   &target.ID,
		})
		if err != nil {
			return err
		}

		if result.Reverted, err = newRevisionEntry(target); err != nil {
			return err
		}
		if result.Revision, err = newRevisionEntry(revision); err != nil {
			return err
		}
		result.Document = doc

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RollbacksTotal.Inc()
	logrus.WithFields(logrus.Fields{
		"document": result.Document.ID,
		"revision": revisionID,
		"actor":    actorID,
	}).Info("revision rolled back")

	return &result, nil
}
