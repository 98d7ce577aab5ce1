package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/studentdiary-backend/internal/pkg/httpx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "m", EmbeddingModel: "e"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateJSONDecodesOutputText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header: %q", got)
		}
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Text == nil || req.Text.Format["type"] != "json_schema" {
			t.Errorf("expected json_schema format, got %+v", req.Text)
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"sentiment\":\"positive\"}"}]}]}`))
	})

	var out struct {
		Sentiment string `json:"sentiment"`
	}
	if err := c.GenerateJSON(context.Background(), "sys", "user", "x", map[string]any{"type": "object"}, &out); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out.Sentiment != "positive" {
		t.Fatalf("sentiment: got %q", out.Sentiment)
	}
}

func TestStatusErrorsAreClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	})
	_, err := c.GenerateText(context.Background(), "sys", "user")
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 StatusError, got %v", err)
	}
	if !httpx.IsRetryableError(err) {
		t.Fatalf("429 should be retryable")
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	})
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Fatalf("unexpected order: %v", vecs)
	}
}
