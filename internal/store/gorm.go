package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/suggest/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *GormStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return g.db.WithContext(ctx).Create(doc).Error
}

func (g *GormStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

func (g *GormStore) UpdateDocumentContent(ctx context.Context, id string, expectedVersion int64, content string) error {
	affected, err := model.UpdateContent(g.db.WithContext(ctx), id, expectedVersion, content)
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (g *GormStore) CreateSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	return g.db.WithContext(ctx).Create(suggestion).Error
}

func (g *GormStore) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&suggestion).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &suggestion, nil
}

// FinalizeSuggestion only matches pending rows, so a verdict is written at most once.
func (g *GormStore) FinalizeSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	res := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("id = ? AND status = ?", suggestion.ID, model.StatusPending).
		Updates(map[string]any{
			"approval":         suggestion.Approval,
			"status":           suggestion.Status,
			"rejection_reason": suggestion.RejectionReason,
			"raw_response":     suggestion.RawResponse,
			"proposed_diff":    suggestion.ProposedDiff,
			"description":      suggestion.Description,
			"applied":          suggestion.Applied,
			"processed_at":     suggestion.ProcessedAt,
			"applied_at":       suggestion.AppliedAt,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrSuggestionNotPending
	}

	return nil
}

func (g *GormStore) ListSuggestions(ctx context.Context, submitterID string, offset, limit int) ([]*model.Suggestion, int64, error) {
	var total int64
	query := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("submitter_id = ?", submitterID).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var suggestions []*model.Suggestion
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&suggestions).Error
	return suggestions, total, err
}

func (g *GormStore) CountApprovedSuggestions(ctx context.Context, submitterID string) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("submitter_id = ? AND approval = ?", submitterID, model.ApprovalApproved).
		Count(&count).Error
	return count, err
}

func (g *GormStore) CountPendingSuggestions(ctx context.Context, createdBefore time.Time) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("status = ? AND created_at < ?", model.StatusPending, createdBefore).
		Count(&count).Error
	return count, err
}

func (g *GormStore) ListPendingSuggestions(ctx context.Context, scheduledBefore time.Time, limit int) ([]*model.Suggestion, error) {
	var suggestions []*model.Suggestion
	err := g.db.WithContext(ctx).
		Where("status = ? AND dead_lettered_at IS NULL AND scheduled_at < ?", model.StatusPending, scheduledBefore).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&suggestions).Error
	return suggestions, err
}

func (g *GormStore) ScheduleSuggestion(ctx context.Context, id string, at time.Time) error {
	res := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]any{
			"scheduled_at":     at,
			"dead_lettered_at": nil,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrSuggestionNotPending
	}

	return nil
}

// RescheduleStaleSuggestion is a guarded update, so two sweeps racing over the
// same row enqueue it once.
func (g *GormStore) RescheduleStaleSuggestion(ctx context.Context, id string, scheduledBefore, at time.Time) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("id = ? AND status = ? AND dead_lettered_at IS NULL AND scheduled_at < ?", id, model.StatusPending, scheduledBefore).
		Updates(map[string]any{
			"scheduled_at": at,
			"updated_at":   time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

func (g *GormStore) TouchSuggestion(ctx context.Context, id string, at time.Time) error {
	return g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Update("scheduled_at", at).Error
}

func (g *GormStore) DeadLetterSuggestion(ctx context.Context, id string, at time.Time) error {
	res := g.db.WithContext(ctx).Model(&model.Suggestion{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]any{
			"dead_lettered_at": at,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrSuggestionNotPending
	}

	return nil
}

// CreateRevision numbers the revision after the latest one of its document.
// Two concurrent writers for the same document collide on the unique
// (document_id, sequence) index.
func (g *GormStore) CreateRevision(ctx context.Context, revision *model.Revision) error {
	db := g.db.WithContext(ctx)

	var last int64
	err := db.Model(&model.Revision{}).
		Where("document_id = ?", revision.DocumentID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return err
	}

	revision.Sequence = last + 1
	return db.Omit("Suggestion").Create(revision).Error
}

func (g *GormStore) GetRevision(ctx context.Context, id string) (*model.Revision, error) {
	var revision model.Revision
	err := g.db.WithContext(ctx).Preload("Suggestion").Where("id = ?", id).First(&revision).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &revision, nil
}

func (g *GormStore) ListRevisions(ctx context.Context, filter RevisionFilter) ([]*model.Revision, int64, error) {
	query := g.db.WithContext(ctx).Model(&model.Revision{}).Where("document_id = ?", filter.DocumentID)
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var revisions []*model.Revision
	err := query.Preload("Suggestion").
		Order("sequence desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&revisions).Error
	return revisions, total, err
}

func (g *GormStore) DeactivateRevision(ctx context.Context, id string, actorID string, at time.Time) error {
	res := g.db.WithContext(ctx).Model(&model.Revision{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"active":         false,
			"rolled_back_at": at,
			"rolled_back_by": actorID,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrRevisionInactive
	}

	return nil
}

func (g *GormStore) GetRateLimit(ctx context.Context, submitterID, documentID string) (*model.RateLimitRecord, error) {
	var record model.RateLimitRecord
	err := g.db.WithContext(ctx).
		Where("submitter_id = ? AND document_id = ?", submitterID, documentID).
		First(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (g *GormStore) TouchRateLimit(ctx context.Context, submitterID, documentID string, at time.Time) error {
	record := &model.RateLimitRecord{
		SubmitterID:      submitterID,
		DocumentID:       documentID,
		LastSubmissionAt: at,
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submitter_id"}, {Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_submission_at", "updated_at"}),
	}).Create(record).Error
}

func (g *GormStore) AwardBadge(ctx context.Context, award *model.BadgeAward) (bool, error) {
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(award)
	return res.RowsAffected == 1, res.Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
