package pieskieo

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Wire payloads. Optional keys are omitted, never sent as null, with the
// single exception of bulkItem.Meta.

type vectorPayload struct {
	ID        string             `json:"id"`
	Vector    []float32          `json:"vector"`
	Namespace string             `json:"namespace,omitempty"`
	Meta      *map[string]string `json:"meta,omitempty"`
}

type bulkItem struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	// Meta is always present and null when absent. The server accepts both
	// forms; single writes omit the key instead.
	Meta      map[string]string `json:"meta"`
	Namespace string            `json:"namespace,omitempty"`
}

type bulkPayload struct {
	Items []bulkItem `json:"items"`
}

type searchPayload struct {
	Query      []float32         `json:"query"`
	K          int               `json:"k"`
	Metric     string            `json:"metric"`
	Namespace  string            `json:"namespace,omitempty"`
	EfSearch   *int              `json:"ef_search,omitempty"`
	FilterIDs  []string          `json:"filter_ids,omitempty"`
	FilterMeta map[string]string `json:"filter_meta,omitempty"`
}

type docPayload struct {
	ID         string `json:"id"`
	Data       any    `json:"data"`
	Namespace  string `json:"namespace,omitempty"`
	Collection string `json:"collection,omitempty"`
}

type rowPayload struct {
	ID        string `json:"id"`
	Data      any    `json:"data"`
	Namespace string `json:"namespace,omitempty"`
	Table     string `json:"table,omitempty"`
}

type structuredQuery struct {
	Filter     map[string]any `json:"filter"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
	Namespace  string         `json:"namespace,omitempty"`
	Collection string         `json:"collection,omitempty"`
	Table      string         `json:"table,omitempty"`
}

type rawQuery struct {
	SQL string `json:"sql"`
}

type sqlPayload struct {
	SQL   string `json:"sql"`
	Limit *int   `json:"limit,omitempty"`
}

type metaPayload struct {
	Meta map[string]string `json:"meta"`
}

type metaKeysPayload struct {
	Keys []string `json:"keys"`
}

type edgePayload struct {
	Src    string  `json:"src"`
	Dst    string  `json:"dst"`
	Weight float32 `json:"weight"`
}

// resolveID returns id, or a fresh random identifier when id is zero.
func resolveID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func buildVectorPayload(in VectorInput) (uuid.UUID, vectorPayload, error) {
	if len(in.Vector) == 0 {
		return uuid.Nil, vectorPayload{}, fmt.Errorf("vector is required: %w", ErrInvalidInput)
	}
	id := resolveID(in.ID)
	p := vectorPayload{
		ID:        id.String(),
		Vector:    in.Vector,
		Namespace: in.Namespace,
	}
	if in.Meta != nil {
		meta := in.Meta
		p.Meta = &meta
	}
	return id, p, nil
}

func buildBulkPayload(items []BulkVectorItem) (bulkPayload, error) {
	out := make([]bulkItem, len(items))
	for i, it := range items {
		if len(it.Vector) == 0 {
			return bulkPayload{}, fmt.Errorf("item %d: vector is required: %w", i, ErrInvalidInput)
		}
		out[i] = bulkItem{
			ID:        resolveID(it.ID).String(),
			Vector:    it.Vector,
			Meta:      it.Meta,
			Namespace: it.Namespace,
		}
	}
	return bulkPayload{Items: out}, nil
}

func buildSearchPayload(req VectorSearchRequest) (searchPayload, error) {
	if len(req.Query) == 0 {
		return searchPayload{}, fmt.Errorf("query vector is required: %w", ErrInvalidInput)
	}
	p := searchPayload{
		Query:     req.Query,
		K:         req.K,
		Metric:    req.Metric,
		Namespace: req.Namespace,
		EfSearch:  req.EfSearch,
	}
	if p.K <= 0 {
		p.K = DefaultK
	}
	if p.Metric == "" {
		p.Metric = DefaultMetric
	}
	if len(req.FilterIDs) > 0 {
		p.FilterIDs = make([]string, len(req.FilterIDs))
		for i, id := range req.FilterIDs {
			p.FilterIDs[i] = id.String()
		}
	}
	if len(req.FilterMeta) > 0 {
		p.FilterMeta = req.FilterMeta
	}
	return p, nil
}

func buildDocPayload(in DocInput) (uuid.UUID, docPayload, error) {
	if in.Data == nil {
		return uuid.Nil, docPayload{}, fmt.Errorf("document data is required: %w", ErrInvalidInput)
	}
	id := resolveID(in.ID)
	return id, docPayload{
		ID:         id.String(),
		Data:       in.Data,
		Namespace:  in.Namespace,
		Collection: in.Collection,
	}, nil
}

func buildRowPayload(in RowInput) (uuid.UUID, rowPayload, error) {
	if in.Data == nil {
		return uuid.Nil, rowPayload{}, fmt.Errorf("row data is required: %w", ErrInvalidInput)
	}
	id := resolveID(in.ID)
	return id, rowPayload{
		ID:        id.String(),
		Data:      in.Data,
		Namespace: in.Namespace,
		Table:     in.Table,
	}, nil
}

// queryFamily selects which grouping key a structured query carries.
type queryFamily int

const (
	familyDocs queryFamily = iota
	familyRows
)

// buildQueryPayload returns the body for a doc or row query. A raw SQL
// string replaces the structured form entirely.
func buildQueryPayload(in QueryInput, family queryFamily) any {
	if in.SQL != "" {
		return rawQuery{SQL: in.SQL}
	}
	q := structuredQuery{
		Filter:    in.Filter,
		Limit:     in.Limit,
		Offset:    in.Offset,
		Namespace: in.Namespace,
	}
	if q.Filter == nil {
		q.Filter = map[string]any{}
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	switch family {
	case familyDocs:
		q.Collection = in.Collection
	case familyRows:
		q.Table = in.Table
	}
	return q
}

func docScopeQuery(s DocScope) url.Values {
	return scopeQuery("collection", s.Namespace, s.Collection)
}

func rowScopeQuery(s RowScope) url.Values {
	return scopeQuery("table", s.Namespace, s.Table)
}

// scopeQuery returns nil when neither value is set so no "?" is appended.
func scopeQuery(groupKey, namespace, group string) url.Values {
	if namespace == "" && group == "" {
		return nil
	}
	v := url.Values{}
	if namespace != "" {
		v.Set("namespace", namespace)
	}
	if group != "" {
		v.Set(groupKey, group)
	}
	return v
}

// truncate applies the client-side traversal cap. limit <= 0 disables it.
// TODO: pass limit to the server once the graph routes accept one.
func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
