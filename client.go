package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/suggest/internal/model"
	"github.com/emrgen/suggest/internal/queue"
	"github.com/emrgen/suggest/internal/service"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode        int
	Message           string
	RetryAfterMinutes int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Client talks to the suggestion server over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateDocument(ctx context.Context, req service.CreateDocumentRequest) (*model.Document, error) {
	return call[model.Document](ctx, c, http.MethodPost, "/v1/documents", req)
}

func (c *Client) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	return call[model.Document](ctx, c, http.MethodGet, "/v1/documents/"+url.PathEscape(id), nil)
}

// EditResult is the response of EditDocument.
type EditResult struct {
	Document *model.Document        `json:"document"`
	Revision *service.RevisionEntry `json:"revision"`
}

func (c *Client) EditDocument(ctx context.Context, req service.EditDocumentRequest) (*EditResult, error) {
	return call[EditResult](ctx, c, http.MethodPut, "/v1/documents/"+url.PathEscape(req.DocumentID), req)
}

func (c *Client) SubmitSuggestion(ctx context.Context, req service.SubmitRequest) (*model.Suggestion, error) {
	return call[model.Suggestion](ctx, c, http.MethodPost, "/v1/suggestions", req)
}

func (c *Client) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return call[model.Suggestion](ctx, c, http.MethodGet, "/v1/suggestions/"+url.PathEscape(id), nil)
}

func (c *Client) RequeueSuggestion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/suggestions/"+url.PathEscape(id)+"/requeue", nil, nil)
}

// SuggestionPage is one page of a submitter's suggestions.
type SuggestionPage struct {
	Suggestions []*model.Suggestion `json:"suggestions"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	Total       int64               `json:"total"`
}

func (c *Client) ListSuggestions(ctx context.Context, submitterID string, page, pageSize int) (*SuggestionPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	path := "/v1/users/" + url.PathEscape(submitterID) + "/suggestions?" + query.Encode()
	return call[SuggestionPage](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) ListRevisions(ctx context.Context, req service.ListRevisionsRequest) (*service.RevisionPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("page_size", strconv.Itoa(req.PageSize))
	query.Set("active_only", strconv.FormatBool(req.ActiveOnly))

	path := "/v1/documents/" + url.PathEscape(req.DocumentID) + "/revisions?" + query.Encode()
	return call[service.RevisionPage](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) GetRevision(ctx context.Context, id string) (*service.RevisionEntry, error) {
	return call[service.RevisionEntry](ctx, c, http.MethodGet, "/v1/revisions/"+url.PathEscape(id), nil)
}

func (c *Client) Rollback(ctx context.Context, revisionID, actorID string) (*service.RollbackResult, error) {
	body := map[string]string{"actor_id": actorID}
	return call[service.RollbackResult](ctx, c, http.MethodPost, "/v1/revisions/"+url.PathEscape(revisionID)+"/rollback", body)
}

func (c *Client) DeadLetters(ctx context.Context) ([]*queue.Job, error) {
	var res struct {
		Jobs []*queue.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/dead", nil, &res); err != nil {
		return nil, err
	}
	return res.Jobs, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Error             string `json:"error"`
			RetryAfterMinutes int    `json:"retry_after_minutes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error, RetryAfterMinutes: e.RetryAfterMinutes}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
