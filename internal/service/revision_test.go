package service

import (
	"context"
	"testing"

	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionService_Rollback(t *testing.T) {
	for _, codec := range []compress.Compress{compress.NewNop(), compress.NewGZip(), compress.NewBrotli(), compress.NewLZ4()} {
		t.Run(codec.Name(), func(t *testing.T) {
			f := newFixture(t, codec)
			doc := f.document(t, "Teh quick fox")
			f.judge.verdict = approve("The quick fox")

			applied, err := f.submitAndProcess(t, doc.ID, "alice")
			require.NoError(t, err)
			require.NotNil(t, applied.Revision)

			result, err := f.revisions.Rollback(context.TODO(), applied.Revision.ID, "admin")
			require.NoError(t, err)

			assert.Equal(t, "Teh quick fox", result.Document.Content)
			assert.False(t, result.Reverted.Active)
			require.NotNil(t, result.Reverted.RolledBackBy)
			assert.Equal(t, "admin", *result.Reverted.RolledBackBy)
			assert.NotNil(t, result.Reverted.RolledBackAt)

			assert.Equal(t, model.ChangeKindRollback, result.Revision.Kind)
			assert.Equal(t, "The quick fox", result.Revision.BeforeContent)
			assert.Equal(t, "Teh quick fox", result.Revision.AfterContent)
			assert.True(t, result.Revision.Active)
			require.NotNil(t, result.Revision.RevertsID)
			assert.Equal(t, applied.Revision.ID, *result.Revision.RevertsID)
			assert.Contains(t, result.Revision.Description, "Rolled back revision #1")

			got, err := f.documents.GetDocument(context.TODO(), doc.ID)
			require.NoError(t, err)
			assert.Equal(t, "Teh quick fox", got.Content)
			assert.Equal(t, int64(2), got.Version)

			_, err = f.revisions.Rollback(context.TODO(), applied.Revision.ID, "admin")
			assert.ErrorIs(t, err, ErrRevisionInactive)
		})
	}
}

func TestRevisionService_RollbackOfRollback(t *testing.T) {
	f := newFixture(t, compress.NewGZip())
	doc := f.document(t, "Teh quick fox")
	f.judge.verdict = approve("The quick fox")

	applied, err := f.submitAndProcess(t, doc.ID, "alice")
	require.NoError(t, err)

	first, err := f.revisions.Rollback(context.TODO(), applied.Revision.ID, "admin")
	require.NoError(t, err)

	second, err := f.revisions.Rollback(context.TODO(), first.Revision.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "The quick fox", second.Document.Content)

	page, err := f.revisions.ListRevisions(context.TODO(), ListRevisionsRequest{DocumentID: doc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Revisions, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{
		page.Revisions[0].Sequence,
		page.Revisions[1].Sequence,
		page.Revisions[2].Sequence,
	})

	active, err := f.revisions.ListRevisions(context.TODO(), ListRevisionsRequest{DocumentID: doc.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active.Revisions, 1)
	assert.Equal(t, second.Revision.ID, active.Revisions[0].ID)
}

func TestRevisionService_ListRevisions(t *testing.T) {
	f := newFixture(t, compress.NewNop())
	doc := f.document(t, "Teh quick fox")
	f.judge.verdict = approve("The quick fox")

	applied, err := f.submitAndProcess(t, doc.ID, "alice")
	require.NoError(t, err)

	for _, content := range []string{"The quick brown fox", "The quick brown fox jumps"} {
		_, _, err := f.documents.EditDocument(context.TODO(), EditDocumentRequest{
			DocumentID: doc.ID,
			ActorID:    "editor",
			Content:    content,
		})
		require.NoError(t, err)
	}

	page, err := f.revisions.ListRevisions(context.TODO(), ListRevisionsRequest{DocumentID: doc.ID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Revisions, 2)
	assert.Equal(t, model.ChangeKindManual, page.Revisions[0].Kind)
	assert.Nil(t, page.Revisions[0].Suggestion)

	page, err = f.revisions.ListRevisions(context.TODO(), ListRevisionsRequest{DocumentID: doc.ID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Revisions, 1)

	entry := page.Revisions[0]
	assert.Equal(t, applied.Revision.ID, entry.ID)
	require.NotNil(t, entry.Suggestion)
	assert.Equal(t, "alice", entry.Suggestion.SubmitterID)
	assert.Equal(t, model.StatusApprovedApplied, entry.Suggestion.Status)

	got, err := f.revisions.GetRevision(context.TODO(), applied.Revision.ID)
	require.NoError(t, err)
	assert.Equal(t, "Teh quick fox", got.BeforeContent)
	require.NotNil(t, got.Suggestion)

	_, err = f.revisions.GetRevision(context.TODO(), uuid.NewString())
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	_, err = f.revisions.ListRevisions(context.TODO(), ListRevisionsRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRevisionService_RollbackOlderRevision(t *testing.T) {
	f := newFixture(t, compress.NewNop())
	doc := f.document(t, "one")

	_, first, err := f.documents.EditDocument(context.TODO(), EditDocumentRequest{DocumentID: doc.ID, ActorID: "editor", Content: "two"})
	require.NoError(t, err)
	_, _, err = f.documents.EditDocument(context.TODO(), EditDocumentRequest{DocumentID: doc.ID, ActorID: "editor", Content: "three"})
	require.NoError(t, err)

	// restores the snapshot taken before the target, discarding later edits
	result, err := f.revisions.Rollback(context.TODO(), first.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "one", result.Document.Content)
	assert.Equal(t, "three", result.Revision.BeforeContent)
}

func TestRevisionService_RollbackValidation(t *testing.T) {
	f := newFixture(t, compress.NewNop())

	_, err := f.revisions.Rollback(context.TODO(), "", "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.revisions.Rollback(context.TODO(), uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.revisions.Rollback(context.TODO(), uuid.NewString(), "admin")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}
