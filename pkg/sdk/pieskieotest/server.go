// Package pieskieotest provides an in-memory Pieskieo server for tests.
//
// The server speaks the same HTTP surface as a real node, records every
// request it receives and can be scripted to answer a route with a fixed
// status and body. Search, query and traversal semantics are deliberately
// simple: exact-match filters, brute-force distance, SQL treated as
// "return everything".
package pieskieotest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pieskieo/pieskieo-go/internal/metrics"
)

// Request is a recorded incoming request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into a generic map.
func (r Request) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

type stub struct {
	status int
	body   []byte
}

// Option configures the Server.
type Option func(*Server)

// WithBearerToken requires "Authorization: Bearer <token>" on every route except /healthz and /metrics.
func WithBearerToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// Server is an httptest.Server backed by an in-memory store.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	stubs    map[string]stub
	token    string
	store    *store

	registry *prometheus.Registry
	metrics  *metrics.HTTP
}

// NewServer starts a fake server. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		stubs:    make(map[string]stub),
		store:    newStore(),
		registry: prometheus.NewRegistry(),
	}
	for _, o := range opts {
		o(s)
	}
	m, err := metrics.NewHTTP(s.registry)
	if err != nil {
		panic(err)
	}
	s.metrics = m
	s.Server = httptest.NewServer(s.routes())
	return s
}

// RouteHits returns how many requests matched the chi route pattern with the
// given response status, e.g. RouteHits("GET", "/v1/doc/{id}", 404).
func (s *Server) RouteHits(method, pattern string, status int) int {
	return int(testutil.ToFloat64(s.metrics.Requests(method, pattern, status)))
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or a zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Stub makes method+path answer status with a raw body, bypassing the store.
func (s *Server) Stub(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[method+" "+path] = stub{status: status, body: []byte(body)}
}

// StubData makes method+path answer 200 with data wrapped in the envelope.
func (s *Server) StubData(method, path string, data any) {
	b, err := json.Marshal(envelope{OK: true, Data: data})
	if err != nil {
		panic(err)
	}
	s.Stub(method, path, http.StatusOK, string(b))
}

// FailAll makes every route answer status until Reset.
func (s *Server) FailAll(status int) {
	s.Stub("*", "*", status, http.StatusText(status))
}

// Reset drops recorded requests, stubs and stored data.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
	s.stubs = make(map[string]stub)
	s.store = newStore()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.metrics.Middleware)
	r.Use(s.stubbed)
	r.Use(s.auth)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/v1/vector", func(r chi.Router) {
		r.Post("/", s.putVector)
		r.Post("/bulk", s.putVectorBulk)
		r.Post("/search", s.searchVector)
		r.Post("/config", s.ack("updated"))
		r.Post("/rebuild", s.ack("rebuilt"))
		r.Post("/vacuum", s.ack("vacuumed"))
		r.Post("/snapshot/save", s.ack("saved"))
		r.Get("/{id}", s.getVector)
		r.Delete("/{id}", s.deleteVector)
		r.Post("/{id}/meta", s.updateMeta)
		r.Post("/{id}/meta/delete", s.deleteMetaKeys)
	})
	r.Route("/v1/doc", func(r chi.Router) {
		r.Post("/", s.putRecord(familyDoc))
		r.Post("/query", s.queryRecords(familyDoc))
		r.Get("/{id}", s.getRecord(familyDoc))
		r.Delete("/{id}", s.deleteRecord(familyDoc))
	})
	r.Route("/v1/row", func(r chi.Router) {
		r.Post("/", s.putRecord(familyRow))
		r.Post("/query", s.queryRecords(familyRow))
		r.Get("/{id}", s.getRecord(familyRow))
		r.Delete("/{id}", s.deleteRecord(familyRow))
	})
	r.Post("/v1/sql", s.querySQL)
	r.Post("/v1/schema", s.ack("schema set"))
	r.Route("/v1/graph", func(r chi.Router) {
		r.Post("/edge", s.addEdge)
		r.Get("/{id}", s.traverse(traverseNeighbors))
		r.Get("/{id}/bfs", s.traverse(traverseBFS))
		r.Get("/{id}/dfs", s.traverse(traverseDFS))
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) stubbed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		st, ok := s.stubs[r.Method+" "+r.URL.Path]
		if !ok {
			st, ok = s.stubs["* *"]
		}
		s.mu.Unlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if len(st.body) > 0 && st.body[0] == '{' {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(st.status)
		_, _ = w.Write(st.body)
	})
}

// auth mirrors the server's bearer check. /healthz is always open.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		const bearerPrefix = "Bearer "
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, bearerPrefix) || h[len(bearerPrefix):] != s.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if msg != "" {
		_, _ = w.Write([]byte(msg))
	}
}

func (s *Server) ack(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, msg)
	}
}
