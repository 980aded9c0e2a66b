package pieskieo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoEmbedder is returned by the text helpers when no Embedder is configured.
var ErrNoEmbedder = errors.New("pieskieo: embedder not configured (use WithEmbedder)")

// Embedder converts text to vector embeddings.
// Only PutText and SearchText use it; every other operation takes raw vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return EmbeddingResult{}, ErrNoEmbedder
}

// PutText embeds text and stores the result as in.Vector.
func (c *Client) PutText(ctx context.Context, text string, in VectorInput) (uuid.UUID, error) {
	vec, err := c.embed(ctx, text)
	if err != nil {
		return uuid.Nil, fmt.Errorf("put text: %w", err)
	}
	in.Vector = vec
	return c.PutVector(ctx, in)
}

// SearchText embeds text and searches with it as req.Query.
func (c *Client) SearchText(ctx context.Context, text string, req VectorSearchRequest) ([]VectorSearchHit, error) {
	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	req.Query = vec
	return c.Search(ctx, req)
}

func (c *Client) embed(ctx context.Context, text string) (_ []float32, err error) {
	ctx, done := c.core.obs.begin(ctx, "embed")
	defer func() { done(err) }()

	if text == "" {
		return nil, fmt.Errorf("text is required: %w", ErrInvalidInput)
	}
	r, err := c.core.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(r.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding: %w", ErrInvalidInput)
	}
	return r.Embedding, nil
}
