package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emrgen/suggest/internal/badge"
	"github.com/emrgen/suggest/internal/compress"
	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/notify"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/service"
	"github.com/emrgen/suggest/internal/store"
	"github.com/emrgen/suggest/internal/tester"
	"github.com/emrgen/suggest/internal/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	tester.Setup()
	m.Run()
}

type testServer struct {
	*httptest.Server
	suggestions *service.SuggestionService
}

func newTestServer(t *testing.T) *testServer {
	db := tester.TestDB(t)
	s := store.NewGormStore(db)
	q := queue.NewMemoryQueue(16)
	codec := compress.NewGZip()

	judge := validator.Func(func(ctx context.Context, req validator.Request) validator.Verdict {
		fixed := "The quick fox"
		return validator.Normalize(req, validator.Verdict{IsValid: true, UpdatedContent: &fixed})
	})

	suggestions := service.NewSuggestionService(codec, s, q, judge, notify.NewLogNotifier(),
		service.StaticSettings{Cooldown: time.Hour, Thresholds: badge.Thresholds{badge.TierBronze: 1}},
		service.PipelineConfig{})
	api := NewAPI(suggestions, service.NewRevisionService(codec, s, nil), service.NewDocumentService(codec, s), q)

	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, suggestions: suggestions}
}

func (s *testServer) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestServer_SuggestionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var doc model.Document
	resp := srv.do(t, http.MethodPost, "/v1/documents", map[string]string{"title": "Foxes", "content": "Teh quick fox"}, &doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	submit := map[string]string{
		"document_id":  doc.ID,
		"submitter_id": "alice",
		"category":     "correction",
		"details":      "fix grammar in the first sentence",
	}

	var suggestion model.Suggestion
	resp = srv.do(t, http.MethodPost, "/v1/suggestions", submit, &suggestion)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, model.StatusPending, suggestion.Status)

	_, err := srv.suggestions.Process(context.TODO(), suggestion.ID)
	require.NoError(t, err)

	resp = srv.do(t, http.MethodGet, "/v1/suggestions/"+suggestion.ID, nil, &suggestion)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusApprovedApplied, suggestion.Status)

	var limited map[string]any
	resp = srv.do(t, http.MethodPost, "/v1/suggestions", submit, &limited)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "3600", resp.Header.Get("Retry-After"))
	assert.Equal(t, float64(60), limited["retry_after_minutes"])

	resp = srv.do(t, http.MethodPost, "/v1/suggestions/"+suggestion.ID+"/requeue", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var page service.RevisionPage
	resp = srv.do(t, http.MethodGet, "/v1/documents/"+doc.ID+"/revisions?active_only=true", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, page.Revisions, 1)
	assert.Equal(t, "The quick fox", page.Revisions[0].AfterContent)

	var rollback service.RollbackResult
	resp = srv.do(t, http.MethodPost, "/v1/revisions/"+page.Revisions[0].ID+"/rollback", map[string]string{"actor_id": "admin"}, &rollback)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Teh quick fox", rollback.Document.Content)

	resp = srv.do(t, http.MethodPost, "/v1/revisions/"+page.Revisions[0].ID+"/rollback", map[string]string{"actor_id": "admin"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var list struct {
		Suggestions []model.Suggestion `json:"suggestions"`
		Total       int64              `json:"total"`
	}
	resp = srv.do(t, http.MethodGet, "/v1/users/alice/suggestions", nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), list.Total)
}

func TestServer_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid category", http.MethodPost, "/v1/suggestions", map[string]string{
			"document_id": uuid.NewString(), "submitter_id": "alice", "category": "poetry", "details": "make it rhyme please",
		}, http.StatusBadRequest},
		{"unknown document", http.MethodPost, "/v1/suggestions", map[string]string{
			"document_id": uuid.NewString(), "submitter_id": "alice", "category": "clarity", "details": "reword the intro please",
		}, http.StatusNotFound},
		{"unknown suggestion", http.MethodGet, "/v1/suggestions/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown revision", http.MethodGet, "/v1/revisions/" + uuid.NewString(), nil, http.StatusNotFound},
		{"rollback without actor", http.MethodPost, "/v1/revisions/" + uuid.NewString() + "/rollback", map[string]string{}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/documents", "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var dead map[string][]queue.Job
	resp = srv.do(t, http.MethodGet, "/v1/jobs/dead", nil, &dead)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, dead["jobs"])
}
