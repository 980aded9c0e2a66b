package pieskieo

import (
	"context"
	"errors"
	"testing"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func fixedEmbedder(vec ...float32) *mockEmbedder {
	return &mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: vec, PromptTokens: 2, TotalTokens: 2}, nil
	}}
}

func TestNoopEmbedder(t *testing.T) {
	_, err := noopEmbedder{}.Embed(context.Background(), "test")
	if !errors.Is(err, ErrNoEmbedder) {
		t.Fatalf("error = %v, want ErrNoEmbedder", err)
	}
}

func TestWithEmbedder(t *testing.T) {
	cfg := newClientConfig([]Option{WithEmbedder(fixedEmbedder(1))})
	if cfg.embedder == nil {
		t.Error("expected non-nil embedder")
	}
}

func TestPutText(t *testing.T) {
	srv := newTestServer(t)
	var seen string
	emb := &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		seen = text
		return EmbeddingResult{Embedding: []float32{0.5, 0.5}}, nil
	}}
	c := newTestClient(t, srv, WithEmbedder(emb))

	id, err := c.PutText(context.Background(), "hello world", VectorInput{Meta: map[string]string{"src": "t"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "hello world" {
		t.Errorf("embedded text = %q", seen)
	}
	vec, meta, _, ok := srv.Vector(id)
	if !ok || len(vec) != 2 || meta["src"] != "t" {
		t.Errorf("stored = %v %v %v", vec, meta, ok)
	}
}

func TestSearchText(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, WithEmbedder(fixedEmbedder(1, 0)))
	ctx := context.Background()

	id, err := c.PutVector(ctx, VectorInput{Vector: []float32{1, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hits, err := c.SearchText(ctx, "query", VectorSearchRequest{Metric: MetricCosine})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != id {
		t.Errorf("hits = %+v", hits)
	}
	if body := srv.LastRequest().JSON(); body["metric"] != MetricCosine {
		t.Errorf("metric = %v", body["metric"])
	}
}

func TestText_Errors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	plain := newTestClient(t, srv)
	if _, err := plain.PutText(ctx, "x", VectorInput{}); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("error = %v, want ErrNoEmbedder", err)
	}

	withEmb := newTestClient(t, srv, WithEmbedder(fixedEmbedder()))
	if _, err := withEmb.SearchText(ctx, "", VectorSearchRequest{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty text error = %v, want ErrInvalidInput", err)
	}
	if _, err := withEmb.SearchText(ctx, "x", VectorSearchRequest{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty embedding error = %v, want ErrInvalidInput", err)
	}

	failing := newTestClient(t, srv, WithEmbedder(&mockEmbedder{
		fn: func(context.Context, string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}))
	if _, err := failing.PutText(ctx, "x", VectorInput{}); err == nil {
		t.Error("expected embedder error")
	}

	if n := len(srv.Requests()); n != 0 {
		t.Errorf("requests = %d, want none after embed failures", n)
	}
}
