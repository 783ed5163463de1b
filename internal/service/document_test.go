package service

import (
	"context"
	"testing"

	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_CreateDocument(t *testing.T) {
	f := newFixture(t, compress.NewNop())

	doc, err := f.documents.CreateDocument(context.TODO(), CreateDocumentRequest{
		Title:   "Foxes",
		Content: "Teh quick fox",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	got, err := f.documents.GetDocument(context.TODO(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Foxes", got.Title)
	assert.Equal(t, int64(0), got.Version)

	id := uuid.NewString()
	doc, err = f.documents.CreateDocument(context.TODO(), CreateDocumentRequest{DocumentID: id, Title: "Dogs"})
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)

	_, err = f.documents.CreateDocument(context.TODO(), CreateDocumentRequest{DocumentID: "not-a-uuid", Title: "Cats"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.documents.CreateDocument(context.TODO(), CreateDocumentRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.documents.GetDocument(context.TODO(), uuid.NewString())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentService_EditDocument(t *testing.T) {
	f := newFixture(t, compress.NewBrotli())
	doc := f.document(t, "Teh quick fox")

	updated, revision, err := f.documents.EditDocument(context.TODO(), EditDocumentRequest{
		DocumentID:  doc.ID,
		ActorID:     "editor",
		Content:     "The quick fox",
		Description: "typo",
	})
	require.NoError(t, err)
	assert.Equal(t, "The quick fox", updated.Content)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, model.ChangeKindManual, revision.Kind)
	assert.Equal(t, "typo", revision.Description)
	assert.Equal(t, "Teh quick fox", revision.BeforeContent)
	assert.Equal(t, int64(1), revision.Sequence)

	stale := int64(0)
	_, _, err = f.documents.EditDocument(context.TODO(), EditDocumentRequest{
		DocumentID: doc.ID,
		ActorID:    "editor",
		Content:    "The slow fox",
		Version:    &stale,
	})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	_, _, err = f.documents.EditDocument(context.TODO(), EditDocumentRequest{DocumentID: uuid.NewString(), ActorID: "editor", Content: "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, _, err = f.documents.EditDocument(context.TODO(), EditDocumentRequest{DocumentID: doc.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, int64(1), f.revisionCount(t, doc.ID))
}
