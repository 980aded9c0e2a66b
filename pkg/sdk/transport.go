package pieskieo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// core is the request layer shared by Client and AsyncClient.
// It holds no mutable state besides the HTTP client's connection pool.
type core struct {
	base       string
	httpClient *http.Client
	ownsHTTP   bool

	userAgent   string
	bearerToken string
	basicUser   string
	basicPass   string

	embedder Embedder
	obs      *observer
}

func newCore(baseURL string, cfg *clientConfig) (*core, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("pieskieo: base URL required: %w", ErrInvalidInput)
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("pieskieo: invalid base URL %q: %w", baseURL, ErrInvalidInput)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg, cfg.tracerProvider)
	if err != nil {
		return nil, err
	}

	hc, owns := cfg.httpClient, false
	if hc == nil {
		hc, owns = &http.Client{Timeout: cfg.timeout}, true
	}

	return &core{
		base:        base,
		httpClient:  hc,
		ownsHTTP:    owns,
		userAgent:   cfg.userAgent,
		bearerToken: cfg.bearerToken,
		basicUser:   cfg.basicUser,
		basicPass:   cfg.basicPass,
		embedder:    cfg.embedder,
		obs:         obs,
	}, nil
}

// envelope is the {"data": ...} wrapper of every successful response.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// call performs one HTTP exchange. A nil body sends no payload; a nil out
// skips decoding after the status check.
func (c *core) call(
	ctx context.Context, method, path string, query url.Values, body, out any,
) error {
	raw, err := c.exchange(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	if len(env.Data) == 0 {
		return &DecodeError{Path: path, Err: errors.New("missing data field")}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// exchange sends the request and returns the raw body of a 2xx response.
func (c *core) exchange(
	ctx context.Context, method, path string, query url.Values, body any,
) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	switch {
	case c.bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	case c.basicUser != "":
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}

	span := opSpan(ctx)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with the operation name
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       bytes.TrimSpace(raw),
		}
	}
	return raw, nil
}

// close releases idle connections of a client-owned HTTP client.
func (c *core) close() {
	if c.ownsHTTP {
		c.httpClient.CloseIdleConnections()
	}
}
