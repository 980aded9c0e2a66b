package pieskieo

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout is the request timeout used when WithTimeout is not given.
const DefaultTimeout = 5 * time.Second

const defaultUserAgent = "pieskieo-go"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string

	bearerToken string
	basicUser   string
	basicPass   string

	embedder Embedder

	logger         *slog.Logger
	metricsReg     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func newClientConfig(opts []Option) *clientConfig {
	cfg := &clientConfig{
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	return cfg
}

// WithTimeout sets the per-request timeout. Default: 5s.
// Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the underlying HTTP client.
// The client is used as is; its Timeout takes precedence over WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithBearerToken authenticates every request with a bearer token.
// Takes precedence over WithBasicAuth.
func WithBearerToken(token string) Option {
	return optionFunc(func(c *clientConfig) {
		c.bearerToken = token
	})
}

// WithBasicAuth authenticates every request with HTTP basic credentials.
func WithBasicAuth(user, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.basicUser = user
		c.basicPass = password
	})
}

// WithEmbedder sets the text embedding provider used by PutText and SearchText.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// WithTracerProvider emits one client span per operation.
// Pass nil to disable (default).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(c *clientConfig) {
		c.tracerProvider = tp
	})
}
