package pieskieo

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Server-side defaults mirrored by the client when a field is left zero.
const (
	DefaultK              = 10
	DefaultMetric         = "l2"
	DefaultQueryLimit     = 100
	DefaultTraversalLimit = 100
	DefaultEdgeWeight     = 1.0
)

// Metric names understood by the server. Unknown names fall back to l2 server-side.
const (
	MetricL2     = "l2"
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// VectorInput is a single vector write.
// A zero ID is replaced by a freshly generated one before the request is sent.
type VectorInput struct {
	ID        uuid.UUID
	Vector    []float32
	Meta      map[string]string // nil = omitted, empty map is sent as {}
	Namespace string
}

// BulkVectorItem is one entry of a bulk vector write.
type BulkVectorItem struct {
	ID        uuid.UUID
	Vector    []float32
	Meta      map[string]string // nil is sent as an explicit null
	Namespace string
}

// VectorSearchRequest describes a similarity search.
type VectorSearchRequest struct {
	Query      []float32
	K          int    // 0 = DefaultK
	Metric     string // "" = DefaultMetric
	EfSearch   *int
	FilterIDs  []uuid.UUID
	FilterMeta map[string]string
	Namespace  string
}

// VectorSearchHit is a single search result. Score is passed through as reported.
type VectorSearchHit struct {
	ID    uuid.UUID `json:"id"`
	Score float32   `json:"score"`
}

// VectorRecord is a stored vector as returned by GetVector.
type VectorRecord struct {
	ID     uuid.UUID         `json:"id"`
	Vector []float32         `json:"vector"`
	Meta   map[string]string `json:"meta"`
}

// DocInput is a document write. Data must be JSON-serializable.
type DocInput struct {
	ID         uuid.UUID
	Data       any
	Namespace  string
	Collection string
}

// RowInput is a row write. Data must be JSON-serializable.
type RowInput struct {
	ID        uuid.UUID
	Data      any
	Namespace string
	Table     string
}

// DocScope narrows document reads and deletes. Empty fields are not sent.
type DocScope struct {
	Namespace  string
	Collection string
}

// RowScope narrows row reads and deletes. Empty fields are not sent.
type RowScope struct {
	Namespace string
	Table     string
}

// QueryInput is a structured document or row query.
// A non-empty SQL supersedes every other field.
type QueryInput struct {
	Filter     map[string]any
	Limit      int // 0 = DefaultQueryLimit
	Offset     int
	Namespace  string
	Collection string // documents only
	Table      string // rows only
	SQL        string
}

// Record is a query hit. The server encodes it as an [id, value] pair.
type Record struct {
	ID   uuid.UUID
	Data json.RawMessage
}

// UnmarshalJSON decodes the [id, value] pair encoding.
func (r *Record) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("record: expected [id, value] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.ID); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	r.Data = pair[1]
	return nil
}

// MarshalJSON encodes the record back into its pair form.
func (r Record) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = json.RawMessage("null")
	}
	b, err := json.Marshal([]any{r.ID, data})
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return b, nil
}

// Decode unmarshals the record payload into v.
func (r Record) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return nil
}

// SQL result kinds.
const (
	SQLKindSelect = "select"
	SQLKindWrite  = "write"
	SQLKindInsert = "insert"
)

// SQLResult is the outcome of QuerySQL. Which fields are set depends on Kind.
type SQLResult struct {
	Kind     string      `json:"kind"`
	Rows     []Record    `json:"rows,omitempty"`
	Affected int         `json:"affected,omitempty"`
	IDs      []uuid.UUID `json:"ids,omitempty"`
}

// Edge is a directed weighted graph edge.
type Edge struct {
	Src    uuid.UUID `json:"src"`
	Dst    uuid.UUID `json:"dst"`
	Weight float32   `json:"weight"`
}

// VectorConfig adjusts server index parameters. Nil fields are left unchanged.
type VectorConfig struct {
	EfSearch       *int `json:"ef_search,omitempty"`
	EfConstruction *int `json:"ef_construction,omitempty"`
	LinkTopK       *int `json:"link_top_k,omitempty"`
}

// Schema families accepted by SetSchema.
const (
	SchemaFamilyDoc = "doc"
	SchemaFamilyRow = "row"
)

// Schema declares field constraints for a collection or table.
type Schema struct {
	Family    string                 `json:"family"`
	Namespace string                 `json:"namespace,omitempty"`
	Name      string                 `json:"name"`
	Fields    map[string]SchemaField `json:"fields"`
}

// SchemaField is a single field constraint.
type SchemaField struct {
	Required bool   `json:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
	Type     string `json:"type,omitempty"`
}
