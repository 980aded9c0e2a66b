package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/pieskieo/pieskieo-go/internal/metrics"
	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
	"github.com/pieskieo/pieskieo-go/pkg/sdk/pieskieotest"
)

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// openaiEmbeddingResponse mirrors the OpenAI-compatible API embedding response.
type openaiEmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func embeddingServer(t *testing.T, vec []float32, tokens int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := openaiEmbeddingResponse{Object: "list", Model: "test-model"}
		if vec != nil {
			resp.Data = []embeddingData{{Object: "embedding", Embedding: vec}}
		}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(t *testing.T, baseURL string) (*Embedder, *metrics.Embedding) {
	t.Helper()
	m, err := metrics.NewEmbedding(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewEmbedding: %v", err)
	}
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: 4,
		Provider:   "test",
		Logger:     zap.NewNop(),
		Metrics:    m,
	}), m
}

func TestEmbedder_Embed(t *testing.T) {
	expectedVec := []float32{0.1, 0.2, 0.3, 0.4}
	srv := embeddingServer(t, expectedVec, 10)
	emb, m := newTestEmbedder(t, srv.URL)

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(expectedVec) {
		t.Fatalf("expected %d dimensions, got %d", len(expectedVec), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != expectedVec[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, expectedVec[i])
		}
	}
	if result.PromptTokens != 10 || result.TotalTokens != 10 {
		t.Errorf("usage = %d/%d, expected 10/10", result.PromptTokens, result.TotalTokens)
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("test", "test-model", "success")); got != 1 {
		t.Errorf("requests_total = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(m.TokensTotal.WithLabelValues("test", "test-model", "total")); got != 10 {
		t.Errorf("tokens_total = %v, expected 10", got)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	srv := embeddingServer(t, nil, 0)
	emb, m := newTestEmbedder(t, srv.URL)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("error = %v, expected ErrProvider", err)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("test", "test-model", "empty_response")); got != 1 {
		t.Errorf("errors_total = %v, expected 1", got)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer srv.Close()
	emb, m := newTestEmbedder(t, srv.URL)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("error = %v, expected ErrProvider", err)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("test", "test-model", "api_error")); got != 1 {
		t.Errorf("errors_total = %v, expected 1", got)
	}
}

func TestEmbedder_NilMetrics(t *testing.T) {
	srv := embeddingServer(t, []float32{1}, 1)
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})

	if _, err := emb.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail":"model not found"}`)); got != "model not found" {
		t.Errorf("detail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("detail = %q, expected empty", got)
	}
}

func TestEmbedder_WithClient(t *testing.T) {
	embSrv := embeddingServer(t, []float32{0.6, 0.8}, 3)
	emb, _ := newTestEmbedder(t, embSrv.URL)

	db := pieskieotest.NewServer()
	defer db.Close()
	c, err := pieskieo.New(db.URL, pieskieo.WithEmbedder(emb))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	id, err := c.PutText(context.Background(), "hello", pieskieo.VectorInput{})
	if err != nil {
		t.Fatalf("PutText: %v", err)
	}
	vec, _, _, ok := db.Vector(id)
	if !ok || len(vec) != 2 || vec[0] != 0.6 {
		t.Errorf("stored vector = %v (%v)", vec, ok)
	}
}
