// Package openai provides a pieskieo.Embedder backed by an OpenAI-compatible
// embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pieskieo/pieskieo-go/internal/metrics"
	pieskieo "github.com/pieskieo/pieskieo-go/pkg/sdk"
)

// ErrProvider wraps every failure reported by the embedding API.
var ErrProvider = errors.New("embedding provider error")

// Embedder is an embedding provider using the OpenAI-compatible API (e.g. Nebius).
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
	metrics    *metrics.Embedding
}

var _ pieskieo.Embedder = (*Embedder)(nil)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
	Metrics    *metrics.Embedding // nil disables metrics
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// Embed implements pieskieo.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (pieskieo.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		e.failed("api_error")
		e.logger.Warn("embedding request failed",
			zap.String("provider", e.provider),
			zap.String("model", string(e.model)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return pieskieo.EmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		e.failed("empty_response")
		return pieskieo.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", ErrProvider)
	}

	promptTokens := resp.Usage.PromptTokens
	totalTokens := resp.Usage.TotalTokens
	if e.metrics != nil {
		labels := []string{e.provider, string(e.model)}
		e.metrics.RequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
		e.metrics.RequestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
		if totalTokens > 0 {
			e.metrics.TokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(promptTokens))
			e.metrics.TokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(totalTokens))
		}
	}
	e.logger.Debug("embedded text",
		zap.String("provider", e.provider),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Int("total_tokens", totalTokens),
		zap.Duration("duration", duration),
	)

	return pieskieo.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

func (e *Embedder) failed(errorType string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	e.metrics.ErrorsTotal.WithLabelValues(e.provider, string(e.model), errorType).Inc()
}

// parseAPIError extracts a human-readable error from the API response.
// Every result wraps ErrProvider.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, ErrProvider)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	return fmt.Errorf("embedding request failed: %w: %w", ErrProvider, err)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
