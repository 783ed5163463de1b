package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/store"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewDocumentService creates a new DocumentService.
func NewDocumentService(compress compress.Compress, store store.Store) *DocumentService {
	return &DocumentService{
		store:    store,
		compress: compress,
	}
}

// DocumentService manages the documents suggestions are made against.
type DocumentService struct {
	compress compress.Compress
	store    store.Store
}

type CreateDocumentRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, is.UUID),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
	)
}

// CreateDocument creates a new document.
func (d *DocumentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*model.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	doc := &model.Document{
		ID:      req.DocumentID,
		Title:   req.Title,
		Content: req.Content,
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	if err := d.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	logrus.Infof("document created with id: %s", doc.ID)

	return doc, nil
}

// GetDocument retrieves a document.
func (d *DocumentService) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := d.store.GetDocument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	return doc, err
}

type EditDocumentRequest struct {
	DocumentID  string `json:"document_id"`
	ActorID     string `json:"actor_id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	// Version, when set, must match the stored version for the edit to apply.
	Version *int64 `json:"version,omitempty"`
}

func (r EditDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.ActorID, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// EditDocument overwrites the document content by hand and records a manual revision.
func (d *DocumentService) EditDocument(ctx context.Context, req EditDocumentRequest) (*model.Document, *RevisionEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, invalid(err)
	}

	var doc *model.Document
	var revision *model.Revision
	err := d.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		doc, err = tx.GetDocument(ctx, req.DocumentID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, req.DocumentID)
		}
		if err != nil {
			return err
		}

		if req.Version != nil && *req.Version != doc.Version {
			return store.ErrVersionConflict
		}

		description := req.Description
		if description == "" {
			description = "Manual edit"
		}

		revision, err = writeChange(ctx, tx, d.compress, doc, revisionInput{
			DocumentID:  doc.ID,
			ActorID:     req.ActorID,
			Kind:        model.ChangeKindManual,
			Description: description,
			Before:      doc.Content,
			After:       req.Content,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	entry, err := newRevisionEntry(revision)
	if err != nil {
		return nil, nil, err
	}

	return doc, entry, nil
}
