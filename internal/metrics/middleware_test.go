package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter(t *testing.T) (*chi.Mux, *HTTP) {
	t.Helper()
	m, err := NewHTTP(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	r := chi.NewRouter()
	r.Use(m.Middleware)
	return r, m
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r, m := newRouter(t)
	r.Get("/v1/doc/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/doc/"+id, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	}

	if got := testutil.ToFloat64(m.Requests(http.MethodGet, "/v1/doc/{id}", http.StatusOK)); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r, m := newRouter(t)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/ok", http.StatusOK},
		{"/missing", http.StatusNotFound},
		{"/boom", http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, http.NoBody))
			if got := testutil.ToFloat64(m.Requests(http.MethodGet, tc.path, tc.status)); got != 1 {
				t.Errorf("requests(%s, %d) = %v, want 1", tc.path, tc.status, got)
			}
		})
	}
}

func TestNewHTTP_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Requests(http.MethodPost, "/x", http.StatusOK).Inc()
	if got := testutil.ToFloat64(b.Requests(http.MethodPost, "/x", http.StatusOK)); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}

func TestNewEmbedding(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewEmbedding(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RequestsTotal.WithLabelValues("openai", "m", "success").Inc()

	again, err := NewEmbedding(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(again.RequestsTotal.WithLabelValues("openai", "m", "success")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	if _, err := NewEmbedding(nil); err != nil {
		t.Errorf("nil registerer: %v", err)
	}
}
