package pieskieo

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Future is the pending result of an AsyncClient call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is available or ctx ends.
// Giving up on ctx does not cancel the request; cancel the context passed
// to the originating call for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncClient mirrors Client but starts every call on its own goroutine and
// returns a Future. Each call is still exactly one request; calls are not
// serialized against each other.
type AsyncClient struct {
	client    *Client
	inflight  sync.WaitGroup
	closeOnce sync.Once
}

// NewAsync creates an AsyncClient for the server at baseURL.
func NewAsync(baseURL string, opts ...Option) (*AsyncClient, error) {
	c, err := New(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{client: c}, nil
}

// BaseURL returns the normalized server URL.
func (a *AsyncClient) BaseURL() string { return a.client.BaseURL() }

// Close waits for in-flight calls, then releases idle connections.
// Safe to call more than once. Calls started after Close are undefined.
func (a *AsyncClient) Close() error {
	a.closeOnce.Do(func() {
		a.inflight.Wait()
		_ = a.client.Close()
	})
	return nil
}

func spawn[T any](a *AsyncClient, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

func spawnErr(a *AsyncClient, fn func() error) *Future[struct{}] {
	return spawn(a, func() (struct{}, error) { return struct{}{}, fn() })
}

// Health is the asynchronous form of Client.Health.
func (a *AsyncClient) Health(ctx context.Context) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.Health(ctx) })
}

// PutVector is the asynchronous form of Client.PutVector.
// The identifier is resolved when the future completes.
func (a *AsyncClient) PutVector(ctx context.Context, in VectorInput) *Future[uuid.UUID] {
	return spawn(a, func() (uuid.UUID, error) { return a.client.PutVector(ctx, in) })
}

// PutVectorsBulk is the asynchronous form of Client.PutVectorsBulk.
func (a *AsyncClient) PutVectorsBulk(ctx context.Context, items []BulkVectorItem) *Future[int] {
	return spawn(a, func() (int, error) { return a.client.PutVectorsBulk(ctx, items) })
}

// Search is the asynchronous form of Client.Search.
func (a *AsyncClient) Search(ctx context.Context, req VectorSearchRequest) *Future[[]VectorSearchHit] {
	return spawn(a, func() ([]VectorSearchHit, error) { return a.client.Search(ctx, req) })
}

// GetVector is the asynchronous form of Client.GetVector.
func (a *AsyncClient) GetVector(ctx context.Context, id uuid.UUID) *Future[VectorRecord] {
	return spawn(a, func() (VectorRecord, error) { return a.client.GetVector(ctx, id) })
}

// DeleteVector is the asynchronous form of Client.DeleteVector.
func (a *AsyncClient) DeleteVector(ctx context.Context, id uuid.UUID) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.DeleteVector(ctx, id) })
}

// UpdateMeta is the asynchronous form of Client.UpdateMeta.
func (a *AsyncClient) UpdateMeta(ctx context.Context, id uuid.UUID, meta map[string]string) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.UpdateMeta(ctx, id, meta) })
}

// DeleteMetaKeys is the asynchronous form of Client.DeleteMetaKeys.
func (a *AsyncClient) DeleteMetaKeys(ctx context.Context, id uuid.UUID, keys []string) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.DeleteMetaKeys(ctx, id, keys) })
}

// UpdateVectorConfig is the asynchronous form of Client.UpdateVectorConfig.
func (a *AsyncClient) UpdateVectorConfig(ctx context.Context, cfg VectorConfig) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.UpdateVectorConfig(ctx, cfg) })
}

// RebuildVectors is the asynchronous form of Client.RebuildVectors.
func (a *AsyncClient) RebuildVectors(ctx context.Context) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.RebuildVectors(ctx) })
}

// VacuumVectors is the asynchronous form of Client.VacuumVectors.
func (a *AsyncClient) VacuumVectors(ctx context.Context) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.VacuumVectors(ctx) })
}

// SaveSnapshot is the asynchronous form of Client.SaveSnapshot.
func (a *AsyncClient) SaveSnapshot(ctx context.Context) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.SaveSnapshot(ctx) })
}

// PutDoc is the asynchronous form of Client.PutDoc.
func (a *AsyncClient) PutDoc(ctx context.Context, in DocInput) *Future[uuid.UUID] {
	return spawn(a, func() (uuid.UUID, error) { return a.client.PutDoc(ctx, in) })
}

// GetDoc is the asynchronous form of Client.GetDoc.
func (a *AsyncClient) GetDoc(ctx context.Context, id uuid.UUID, scope DocScope) *Future[json.RawMessage] {
	return spawn(a, func() (json.RawMessage, error) { return a.client.GetDoc(ctx, id, scope) })
}

// DeleteDoc is the asynchronous form of Client.DeleteDoc.
func (a *AsyncClient) DeleteDoc(ctx context.Context, id uuid.UUID, scope DocScope) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.DeleteDoc(ctx, id, scope) })
}

// QueryDocs is the asynchronous form of Client.QueryDocs.
func (a *AsyncClient) QueryDocs(ctx context.Context, in QueryInput) *Future[[]Record] {
	return spawn(a, func() ([]Record, error) { return a.client.QueryDocs(ctx, in) })
}

// PutRow is the asynchronous form of Client.PutRow.
func (a *AsyncClient) PutRow(ctx context.Context, in RowInput) *Future[uuid.UUID] {
	return spawn(a, func() (uuid.UUID, error) { return a.client.PutRow(ctx, in) })
}

// GetRow is the asynchronous form of Client.GetRow.
func (a *AsyncClient) GetRow(ctx context.Context, id uuid.UUID, scope RowScope) *Future[json.RawMessage] {
	return spawn(a, func() (json.RawMessage, error) { return a.client.GetRow(ctx, id, scope) })
}

// DeleteRow is the asynchronous form of Client.DeleteRow.
func (a *AsyncClient) DeleteRow(ctx context.Context, id uuid.UUID, scope RowScope) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.DeleteRow(ctx, id, scope) })
}

// QueryRows is the asynchronous form of Client.QueryRows.
func (a *AsyncClient) QueryRows(ctx context.Context, in QueryInput) *Future[[]Record] {
	return spawn(a, func() ([]Record, error) { return a.client.QueryRows(ctx, in) })
}

// QuerySQL is the asynchronous form of Client.QuerySQL.
func (a *AsyncClient) QuerySQL(ctx context.Context, sql string, limit *int) *Future[SQLResult] {
	return spawn(a, func() (SQLResult, error) { return a.client.QuerySQL(ctx, sql, limit) })
}

// SetSchema is the asynchronous form of Client.SetSchema.
func (a *AsyncClient) SetSchema(ctx context.Context, s Schema) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.SetSchema(ctx, s) })
}

// AddEdge is the asynchronous form of Client.AddEdge.
func (a *AsyncClient) AddEdge(ctx context.Context, src, dst uuid.UUID, weight float32) *Future[struct{}] {
	return spawnErr(a, func() error { return a.client.AddEdge(ctx, src, dst, weight) })
}

// Neighbors is the asynchronous form of Client.Neighbors.
func (a *AsyncClient) Neighbors(ctx context.Context, id uuid.UUID, limit int) *Future[[]Edge] {
	return spawn(a, func() ([]Edge, error) { return a.client.Neighbors(ctx, id, limit) })
}

// BFS is the asynchronous form of Client.BFS.
func (a *AsyncClient) BFS(ctx context.Context, id uuid.UUID, limit int) *Future[[]Edge] {
	return spawn(a, func() ([]Edge, error) { return a.client.BFS(ctx, id, limit) })
}

// DFS is the asynchronous form of Client.DFS.
func (a *AsyncClient) DFS(ctx context.Context, id uuid.UUID, limit int) *Future[[]Edge] {
	return spawn(a, func() ([]Edge, error) { return a.client.DFS(ctx, id, limit) })
}

// PutText is the asynchronous form of Client.PutText.
func (a *AsyncClient) PutText(ctx context.Context, text string, in VectorInput) *Future[uuid.UUID] {
	return spawn(a, func() (uuid.UUID, error) { return a.client.PutText(ctx, text, in) })
}

// SearchText is the asynchronous form of Client.SearchText.
func (a *AsyncClient) SearchText(ctx context.Context, text string, req VectorSearchRequest) *Future[[]VectorSearchHit] {
	return spawn(a, func() ([]VectorSearchHit, error) { return a.client.SearchText(ctx, text, req) })
}
