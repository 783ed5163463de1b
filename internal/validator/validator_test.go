package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emrgen/suggest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgeServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "judge-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "judge-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func newTestValidator(url string) *OpenAIValidator {
	return NewOpenAIValidator(OpenAIConfig{
		APIKey:  "test",
		Model:   "judge-test",
		BaseURL: url + "/v1",
		Timeout: 5 * time.Second,
	})
}

var foxRequest = Request{
	DocumentTitle:   "Foxes",
	DocumentContent: "Teh quick fox",
	Category:        model.CategoryCorrection,
	Details:         "fix grammar",
	SubmitterID:     "alice",
}

func TestOpenAIValidator_Approved(t *testing.T) {
	raw := `{"is_valid":true,"reason":"","updated_content":"The quick fox","diff":"-Teh quick fox\n+The quick fox","description":"Fixed a typo"}`
	server := judgeServer(t, http.StatusOK, raw)
	defer server.Close()

	verdict := newTestValidator(server.URL).Validate(context.TODO(), foxRequest)
	assert.True(t, verdict.IsValid)
	assert.False(t, verdict.Unavailable)
	require.NotNil(t, verdict.UpdatedContent)
	assert.Equal(t, "The quick fox", *verdict.UpdatedContent)
	require.NotNil(t, verdict.Diff)
	assert.Equal(t, "-Teh quick fox\n+The quick fox", *verdict.Diff)
	assert.Equal(t, raw, verdict.RawResponse)
}

func TestOpenAIValidator_FillsMissingDiff(t *testing.T) {
	server := judgeServer(t, http.StatusOK, `{"is_valid":true,"updated_content":"The quick fox"}`)
	defer server.Close()

	verdict := newTestValidator(server.URL).Validate(context.TODO(), foxRequest)
	require.NotNil(t, verdict.Diff)
	assert.Contains(t, *verdict.Diff, "+The quick fox")
}

func TestOpenAIValidator_Rejected(t *testing.T) {
	server := judgeServer(t, http.StatusOK, `{"is_valid":false,"reason":"no factual change needed"}`)
	defer server.Close()

	verdict := newTestValidator(server.URL).Validate(context.TODO(), foxRequest)
	assert.False(t, verdict.IsValid)
	assert.False(t, verdict.Unavailable)
	assert.Equal(t, "no factual change needed", verdict.Reason)
	assert.Nil(t, verdict.UpdatedContent)
}

func TestOpenAIValidator_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "malformed verdict", status: http.StatusOK, content: "I think it is fine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := judgeServer(t, tt.status, tt.content)
			defer server.Close()

			verdict := newTestValidator(server.URL).Validate(context.TODO(), foxRequest)
			assert.False(t, verdict.IsValid)
			assert.True(t, verdict.Unavailable)
			assert.Contains(t, verdict.Reason, UnavailableReason)
		})
	}
}

func TestThrottled(t *testing.T) {
	var calls int32
	next := Func(func(ctx context.Context, req Request) Verdict {
		atomic.AddInt32(&calls, 1)
		return Verdict{IsValid: false, Reason: "nope"}
	})

	throttled := NewThrottled(next, 0.001, 1)

	verdict := throttled.Validate(context.TODO(), foxRequest)
	assert.Equal(t, "nope", verdict.Reason)

	// the bucket is empty and refills far beyond the deadline
	ctx, cancel := context.WithTimeout(context.TODO(), 10*time.Millisecond)
	defer cancel()
	verdict = throttled.Validate(ctx, foxRequest)
	assert.True(t, verdict.Deferred)
	assert.False(t, verdict.Unavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestThrottled_WaitsWithinDeadline(t *testing.T) {
	var calls int32
	next := Func(func(ctx context.Context, req Request) Verdict {
		atomic.AddInt32(&calls, 1)
		return Verdict{IsValid: true}
	})

	throttled := NewThrottled(next, 20, 1)
	assert.True(t, throttled.Validate(context.TODO(), foxRequest).IsValid)

	// the next token is 50ms away, well inside the deadline
	ctx, cancel := context.WithTimeout(context.TODO(), time.Second)
	defer cancel()
	verdict := throttled.Validate(ctx, foxRequest)
	assert.True(t, verdict.IsValid)
	assert.False(t, verdict.Deferred)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
