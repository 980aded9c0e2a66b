package pieskieo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Client is the blocking Pieskieo client. Each method performs exactly one
// HTTP exchange (two for the text helpers: embed, then write or search).
// A Client is safe for concurrent use.
type Client struct {
	core *core
}

// New creates a Client for the server at baseURL. A trailing slash is stripped.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := newClientConfig(opts)
	c, err := newCore(baseURL, cfg)
	if err != nil {
		return nil, err
	}
	if c.embedder == nil {
		c.embedder = noopEmbedder{}
	}
	return &Client{core: c}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string { return c.core.base }

// Close releases idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.core.close()
	return nil
}

// Health checks GET /healthz. The route answers plain text, not an envelope.
func (c *Client) Health(ctx context.Context) (err error) {
	ctx, done := c.core.obs.begin(ctx, "health")
	defer func() { done(err) }()

	if _, err = c.core.exchange(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

// -------- vectors --------

// PutVector creates or replaces a vector and returns the identifier used.
func (c *Client) PutVector(ctx context.Context, in VectorInput) (_ uuid.UUID, err error) {
	ctx, done := c.core.obs.begin(ctx, "put_vector")
	defer func() { done(err) }()

	id, payload, err := buildVectorPayload(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("put vector: %w", err)
	}
	if err = c.core.call(ctx, http.MethodPost, "/v1/vector", nil, payload, nil); err != nil {
		return uuid.Nil, fmt.Errorf("put vector: %w", err)
	}
	return id, nil
}

// PutVectorsBulk writes many vectors in one request and returns the count
// reported by the server, unchecked against len(items).
func (c *Client) PutVectorsBulk(ctx context.Context, items []BulkVectorItem) (_ int, err error) {
	ctx, done := c.core.obs.begin(ctx, "put_vectors_bulk")
	defer func() { done(err) }()

	payload, err := buildBulkPayload(items)
	if err != nil {
		return 0, fmt.Errorf("put vectors bulk: %w", err)
	}
	var n int
	if err = c.core.call(ctx, http.MethodPost, "/v1/vector/bulk", nil, payload, &n); err != nil {
		return 0, fmt.Errorf("put vectors bulk: %w", err)
	}
	return n, nil
}

// Search runs a similarity search. Hits keep the server's order and count.
func (c *Client) Search(ctx context.Context, req VectorSearchRequest) (_ []VectorSearchHit, err error) {
	ctx, done := c.core.obs.begin(ctx, "search")
	defer func() { done(err) }()

	payload, err := buildSearchPayload(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	var hits []VectorSearchHit
	if err = c.core.call(ctx, http.MethodPost, "/v1/vector/search", nil, payload, &hits); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// GetVector fetches a stored vector with its metadata.
func (c *Client) GetVector(ctx context.Context, id uuid.UUID) (_ VectorRecord, err error) {
	ctx, done := c.core.obs.begin(ctx, "get_vector")
	defer func() { done(err) }()

	var rec VectorRecord
	if err = c.core.call(ctx, http.MethodGet, vectorPath(id), nil, nil, &rec); err != nil {
		return VectorRecord{}, fmt.Errorf("get vector: %w", err)
	}
	return rec, nil
}

// DeleteVector removes a vector.
func (c *Client) DeleteVector(ctx context.Context, id uuid.UUID) (err error) {
	ctx, done := c.core.obs.begin(ctx, "delete_vector")
	defer func() { done(err) }()

	if err = c.core.call(ctx, http.MethodDelete, vectorPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}

// UpdateMeta merges meta into the vector's metadata, overwriting existing keys.
func (c *Client) UpdateMeta(ctx context.Context, id uuid.UUID, meta map[string]string) (err error) {
	ctx, done := c.core.obs.begin(ctx, "update_meta")
	defer func() { done(err) }()

	if meta == nil {
		meta = map[string]string{}
	}
	err = c.core.call(ctx, http.MethodPost, vectorPath(id)+"/meta", nil, metaPayload{Meta: meta}, nil)
	if err != nil {
		return fmt.Errorf("update meta: %w", err)
	}
	return nil
}

// DeleteMetaKeys removes the named keys from the vector's metadata.
func (c *Client) DeleteMetaKeys(ctx context.Context, id uuid.UUID, keys []string) (err error) {
	ctx, done := c.core.obs.begin(ctx, "delete_meta_keys")
	defer func() { done(err) }()

	if keys == nil {
		keys = []string{}
	}
	err = c.core.call(ctx, http.MethodPost, vectorPath(id)+"/meta/delete", nil, metaKeysPayload{Keys: keys}, nil)
	if err != nil {
		return fmt.Errorf("delete meta keys: %w", err)
	}
	return nil
}

// UpdateVectorConfig adjusts the server's HNSW parameters.
func (c *Client) UpdateVectorConfig(ctx context.Context, cfg VectorConfig) (err error) {
	ctx, done := c.core.obs.begin(ctx, "update_vector_config")
	defer func() { done(err) }()

	if err = c.core.call(ctx, http.MethodPost, "/v1/vector/config", nil, cfg, nil); err != nil {
		return fmt.Errorf("update vector config: %w", err)
	}
	return nil
}

// RebuildVectors asks the server to rebuild its vector indexes.
func (c *Client) RebuildVectors(ctx context.Context) error {
	return c.maintenance(ctx, "rebuild_vectors", "/v1/vector/rebuild")
}

// VacuumVectors asks the server to drop tombstoned vectors.
func (c *Client) VacuumVectors(ctx context.Context) error {
	return c.maintenance(ctx, "vacuum_vectors", "/v1/vector/vacuum")
}

// SaveSnapshot asks the server to persist a vector index snapshot.
func (c *Client) SaveSnapshot(ctx context.Context) error {
	return c.maintenance(ctx, "save_snapshot", "/v1/vector/snapshot/save")
}

func (c *Client) maintenance(ctx context.Context, op, path string) (err error) {
	ctx, done := c.core.obs.begin(ctx, op)
	defer func() { done(err) }()

	if err = c.core.call(ctx, http.MethodPost, path, nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// -------- documents --------

// PutDoc creates or replaces a document and returns the identifier used.
func (c *Client) PutDoc(ctx context.Context, in DocInput) (_ uuid.UUID, err error) {
	ctx, done := c.core.obs.begin(ctx, "put_doc")
	defer func() { done(err) }()

	id, payload, err := buildDocPayload(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("put doc: %w", err)
	}
	if err = c.core.call(ctx, http.MethodPost, "/v1/doc", nil, payload, nil); err != nil {
		return uuid.Nil, fmt.Errorf("put doc: %w", err)
	}
	return id, nil
}

// GetDoc returns the raw JSON payload of a document.
func (c *Client) GetDoc(ctx context.Context, id uuid.UUID, scope DocScope) (_ json.RawMessage, err error) {
	ctx, done := c.core.obs.begin(ctx, "get_doc")
	defer func() { done(err) }()

	var data json.RawMessage
	if err = c.core.call(ctx, http.MethodGet, docPath(id), docScopeQuery(scope), nil, &data); err != nil {
		return nil, fmt.Errorf("get doc: %w", err)
	}
	return data, nil
}

// DeleteDoc removes a document.
func (c *Client) DeleteDoc(ctx context.Context, id uuid.UUID, scope DocScope) (err error) {
	ctx, done := c.core.obs.begin(ctx, "delete_doc")
	defer func() { done(err) }()

	if err = c.core.call(ctx, http.MethodDelete, docPath(id), docScopeQuery(scope), nil, nil); err != nil {
		return fmt.Errorf("delete doc: %w", err)
	}
	return nil
}

// QueryDocs runs a structured or raw query over documents.
func (c *Client) QueryDocs(ctx context.Context, in QueryInput) (_ []Record, err error) {
	ctx, done := c.core.obs.begin(ctx, "query_docs")
	defer func() { done(err) }()

	var recs []Record
	err = c.core.call(ctx, http.MethodPost, "/v1/doc/query", nil, buildQueryPayload(in, familyDocs), &recs)
	if err != nil {
		return nil, fmt.Errorf("query docs: %w", err)
	}
	return recs, nil
}

// -------- rows --------

// PutRow creates or replaces a row and returns the identifier used.
func (c *Client) PutRow(ctx context.Context, in RowInput) (_ uuid.UUID, err error) {
	ctx, done := c.core.obs.begin(ctx, "put_row")
	defer func() { done(err) }()

	id, payload, err := buildRowPayload(in)
	if err != nil {
		return uuid.Nil, fmt.Errorf("put row: %w", err)
	}
	if err = c.core.call(ctx, http.MethodPost, "/v1/row", nil, payload, nil); err != nil {
		return uuid.Nil, fmt.Errorf("put row: %w", err)
	}
	return id, nil
}

// GetRow returns the raw JSON payload of a row.
func (c *Client) GetRow(ctx context.Context, id uuid.UUID, scope RowScope) (_ json.RawMessage, err error) {
	ctx, done := c.core.obs.begin(ctx, "get_row")
	defer func() { done(err) }()

	var data json.RawMessage
	if err = c.core.call(ctx, http.MethodGet, rowPath(id), rowScopeQuery(scope), nil, &data); err != nil {
		return nil, fmt.Errorf("get row: %w", err)
	}
	return data, nil
}

// DeleteRow removes a row.
func (c *Client) DeleteRow(ctx context.Context, id uuid.UUID, scope RowScope) (err error) {
	ctx, done := c.core.obs.begin(ctx, "delete_row")
	defer func() { done(err) }()

	if err = c.core.call(ctx, http.MethodDelete, rowPath(id), rowScopeQuery(scope), nil, nil); err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return nil
}

// QueryRows runs a structured or raw query over rows.
func (c *Client) QueryRows(ctx context.Context, in QueryInput) (_ []Record, err error) {
	ctx, done := c.core.obs.begin(ctx, "query_rows")
	defer func() { done(err) }()

	var recs []Record
	err = c.core.call(ctx, http.MethodPost, "/v1/row/query", nil, buildQueryPayload(in, familyRows), &recs)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return recs, nil
}

// -------- sql / schema --------

// QuerySQL executes a statement on POST /v1/sql. limit is sent only when non-nil.
func (c *Client) QuerySQL(ctx context.Context, sql string, limit *int) (_ SQLResult, err error) {
	ctx, done := c.core.obs.begin(ctx, "query_sql")
	defer func() { done(err) }()

	if sql == "" {
		return SQLResult{}, fmt.Errorf("query sql: statement is required: %w", ErrInvalidInput)
	}
	var res SQLResult
	if err = c.core.call(ctx, http.MethodPost, "/v1/sql", nil, sqlPayload{SQL: sql, Limit: limit}, &res); err != nil {
		return SQLResult{}, fmt.Errorf("query sql: %w", err)
	}
	return res, nil
}

// SetSchema declares field constraints for a collection or table.
func (c *Client) SetSchema(ctx context.Context, s Schema) (err error) {
	ctx, done := c.core.obs.begin(ctx, "set_schema")
	defer func() { done(err) }()

	if s.Name == "" {
		return fmt.Errorf("set schema: name is required: %w", ErrInvalidInput)
	}
	if s.Fields == nil {
		s.Fields = map[string]SchemaField{}
	}
	if err = c.core.call(ctx, http.MethodPost, "/v1/schema", nil, s, nil); err != nil {
		return fmt.Errorf("set schema: %w", err)
	}
	return nil
}

// -------- graph --------

// AddEdge creates or reweights the directed edge src -> dst.
func (c *Client) AddEdge(ctx context.Context, src, dst uuid.UUID, weight float32) (err error) {
	ctx, done := c.core.obs.begin(ctx, "add_edge")
	defer func() { done(err) }()

	payload := edgePayload{Src: src.String(), Dst: dst.String(), Weight: weight}
	if err = c.core.call(ctx, http.MethodPost, "/v1/graph/edge", nil, payload, nil); err != nil {
		return fmt.Errorf("add edge: %w", err)
	}
	return nil
}

// Neighbors returns the outgoing edges of id, at most limit of them.
// The server returns the full list; the cap is applied here. Pass
// DefaultTraversalLimit for the usual cap of 100; limit <= 0 means no cap.
func (c *Client) Neighbors(ctx context.Context, id uuid.UUID, limit int) ([]Edge, error) {
	return c.traverse(ctx, "neighbors", graphPath(id), limit)
}

// BFS returns edges in breadth-first order from id, capped client-side at limit
// as in Neighbors (DefaultTraversalLimit, or <= 0 for all).
func (c *Client) BFS(ctx context.Context, id uuid.UUID, limit int) ([]Edge, error) {
	return c.traverse(ctx, "bfs", graphPath(id)+"/bfs", limit)
}

// DFS returns edges in depth-first order from id, capped client-side at limit
// as in Neighbors (DefaultTraversalLimit, or <= 0 for all).
func (c *Client) DFS(ctx context.Context, id uuid.UUID, limit int) ([]Edge, error) {
	return c.traverse(ctx, "dfs", graphPath(id)+"/dfs", limit)
}

func (c *Client) traverse(ctx context.Context, op, path string, limit int) (_ []Edge, err error) {
	ctx, done := c.core.obs.begin(ctx, op)
	defer func() { done(err) }()

	var edges []Edge
	if err = c.core.call(ctx, http.MethodGet, path, nil, nil, &edges); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return truncate(edges, limit), nil
}

func vectorPath(id uuid.UUID) string { return "/v1/vector/" + id.String() }
func docPath(id uuid.UUID) string    { return "/v1/doc/" + id.String() }
func rowPath(id uuid.UUID) string    { return "/v1/row/" + id.String() }
func graphPath(id uuid.UUID) string  { return "/v1/graph/" + id.String() }
