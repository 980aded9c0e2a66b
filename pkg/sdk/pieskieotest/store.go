package pieskieotest

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type family int

const (
	familyDoc family = iota
	familyRow
)

type vectorEntry struct {
	Vector    []float32
	Meta      map[string]string
	Namespace string
}

type recordEntry struct {
	Data      json.RawMessage
	Namespace string
	Group     string // collection or table
}

type edge struct {
	Src    uuid.UUID `json:"src"`
	Dst    uuid.UUID `json:"dst"`
	Weight float32   `json:"weight"`
}

type store struct {
	vectors map[uuid.UUID]vectorEntry
	records [2]map[uuid.UUID]recordEntry
	order   [2][]uuid.UUID
	adj     map[uuid.UUID][]edge
}

func newStore() *store {
	return &store{
		vectors: make(map[uuid.UUID]vectorEntry),
		records: [2]map[uuid.UUID]recordEntry{
			make(map[uuid.UUID]recordEntry),
			make(map[uuid.UUID]recordEntry),
		},
		adj: make(map[uuid.UUID][]edge),
	}
}

// Vector returns a stored vector's values, metadata and namespace.
func (s *Server) Vector(id uuid.UUID) ([]float32, map[string]string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.store.vectors[id]
	return v.Vector, v.Meta, v.Namespace, ok
}

// Doc returns a stored document payload.
func (s *Server) Doc(id uuid.UUID) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.store.records[familyDoc][id]
	return r.Data, ok
}

// Row returns a stored row payload.
func (s *Server) Row(id uuid.UUID) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.store.records[familyRow][id]
	return r.Data, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

type vectorIn struct {
	ID        uuid.UUID         `json:"id"`
	Vector    []float32         `json:"vector"`
	Meta      map[string]string `json:"meta"`
	Namespace string            `json:"namespace"`
}

func (s *Server) putVector(w http.ResponseWriter, r *http.Request) {
	var in vectorIn
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	s.store.vectors[in.ID] = vectorEntry{Vector: in.Vector, Meta: in.Meta, Namespace: in.Namespace}
	s.mu.Unlock()
	writeData(w, in.ID)
}

func (s *Server) putVectorBulk(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Items []vectorIn `json:"items"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	for _, it := range in.Items {
		s.store.vectors[it.ID] = vectorEntry{Vector: it.Vector, Meta: it.Meta, Namespace: it.Namespace}
	}
	s.mu.Unlock()
	writeData(w, len(in.Items))
}

func (s *Server) getVector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	v, found := s.store.vectors[id]
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	writeData(w, map[string]any{"id": id, "vector": v.Vector, "meta": v.Meta})
}

func (s *Server) deleteVector(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.store.vectors, id)
	s.mu.Unlock()
	writeData(w, "deleted")
}

func (s *Server) updateMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Meta map[string]string `json:"meta"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.store.vectors[id]
	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	if v.Meta == nil {
		v.Meta = make(map[string]string, len(in.Meta))
	}
	for k, val := range in.Meta {
		v.Meta[k] = val
	}
	s.store.vectors[id] = v
	writeData(w, "updated")
}

func (s *Server) deleteMetaKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in struct {
		Keys []string `json:"keys"`
	}
	if !decode(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.store.vectors[id]
	if !found {
		writeError(w, http.StatusNotFound, "")
		return
	}
	for _, k := range in.Keys {
		delete(v.Meta, k)
	}
	s.store.vectors[id] = v
	writeData(w, "deleted")
}

type hit struct {
	ID    uuid.UUID `json:"id"`
	Score float32   `json:"score"`
}

func (s *Server) searchVector(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query      []float32         `json:"query"`
		K          int               `json:"k"`
		Metric     string            `json:"metric"`
		FilterIDs  []uuid.UUID       `json:"filter_ids"`
		FilterMeta map[string]string `json:"filter_meta"`
		Namespace  string            `json:"namespace"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.K <= 0 {
		in.K = 10
	}
	allow := make(map[uuid.UUID]bool, len(in.FilterIDs))
	for _, id := range in.FilterIDs {
		allow[id] = true
	}

	s.mu.Lock()
	hits := make([]hit, 0, len(s.store.vectors))
	for id, v := range s.store.vectors {
		if in.Namespace != "" && v.Namespace != in.Namespace {
			continue
		}
		if len(allow) > 0 && !allow[id] {
			continue
		}
		if !metaMatches(v.Meta, in.FilterMeta) || len(v.Vector) != len(in.Query) {
			continue
		}
		hits = append(hits, hit{ID: id, Score: score(in.Metric, in.Query, v.Vector)})
	}
	s.mu.Unlock()

	// l2 ranks ascending, cosine and dot descending.
	sort.Slice(hits, func(i, j int) bool {
		if in.Metric == "cosine" || in.Metric == "dot" {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Score < hits[j].Score
	})
	if len(hits) > in.K {
		hits = hits[:in.K]
	}
	writeData(w, hits)
}

func metaMatches(meta, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func score(metric string, a, b []float32) float32 {
	var dot, na, nb, l2 float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		l2 += (x - y) * (x - y)
	}
	switch metric {
	case "dot":
		return float32(dot)
	case "cosine":
		if na == 0 || nb == 0 {
			return 0
		}
		return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
	default:
		return float32(math.Sqrt(l2))
	}
}

type recordIn struct {
	ID         *uuid.UUID      `json:"id"`
	Data       json.RawMessage `json:"data"`
	Namespace  string          `json:"namespace"`
	Collection string          `json:"collection"`
	Table      string          `json:"table"`
}

func groupParam(f family) string {
	if f == familyDoc {
		return "collection"
	}
	return "table"
}

func (s *Server) putRecord(f family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in recordIn
		if !decode(w, r, &in) {
			return
		}
		id := uuid.New()
		if in.ID != nil {
			id = *in.ID
		}
		group := in.Collection
		if f == familyRow {
			group = in.Table
		}
		s.mu.Lock()
		if _, exists := s.store.records[f][id]; !exists {
			s.store.order[f] = append(s.store.order[f], id)
		}
		s.store.records[f][id] = recordEntry{Data: in.Data, Namespace: in.Namespace, Group: group}
		s.mu.Unlock()
		writeData(w, id)
	}
}

func (s *Server) getRecord(f family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		rec, found := s.store.records[f][id]
		s.mu.Unlock()
		if !found || !scopeMatches(rec, r.URL.Query().Get("namespace"), r.URL.Query().Get(groupParam(f))) {
			writeError(w, http.StatusNotFound, "")
			return
		}
		writeData(w, rec.Data)
	}
}

func (s *Server) deleteRecord(f family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		rec, found := s.store.records[f][id]
		if !found || !scopeMatches(rec, r.URL.Query().Get("namespace"), r.URL.Query().Get(groupParam(f))) {
			writeError(w, http.StatusNotFound, "")
			return
		}
		delete(s.store.records[f], id)
		order := s.store.order[f][:0]
		for _, o := range s.store.order[f] {
			if o != id {
				order = append(order, o)
			}
		}
		s.store.order[f] = order
		writeData(w, "deleted")
	}
}

func scopeMatches(rec recordEntry, namespace, group string) bool {
	return (namespace == "" || rec.Namespace == namespace) && (group == "" || rec.Group == group)
}

// pair encodes a hit as the server's [id, value] tuple.
func pair(id uuid.UUID, data json.RawMessage) []any {
	return []any{id, data}
}

func (s *Server) queryRecords(f family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Filter     map[string]any `json:"filter"`
			Limit      *int           `json:"limit"`
			Offset     int            `json:"offset"`
			Namespace  string         `json:"namespace"`
			Collection string         `json:"collection"`
			Table      string         `json:"table"`
			SQL        string         `json:"sql"`
		}
		if !decode(w, r, &in) {
			return
		}
		group := in.Collection
		if f == familyRow {
			group = in.Table
		}

		s.mu.Lock()
		var hits [][]any
		for _, id := range s.store.order[f] {
			rec := s.store.records[f][id]
			if in.SQL == "" {
				if !scopeMatches(rec, in.Namespace, group) || !dataMatches(rec.Data, in.Filter) {
					continue
				}
			}
			hits = append(hits, pair(id, rec.Data))
		}
		s.mu.Unlock()

		if in.SQL == "" {
			limit := 100
			if in.Limit != nil {
				limit = *in.Limit
			}
			hits = page(hits, in.Offset, limit)
		} else if in.Limit != nil && len(hits) > *in.Limit {
			hits = hits[:*in.Limit]
		}
		if hits == nil {
			hits = [][]any{}
		}
		writeData(w, hits)
	}
}

func page(hits [][]any, offset, limit int) [][]any {
	if offset >= len(hits) {
		return nil
	}
	hits = hits[offset:]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func dataMatches(data json.RawMessage, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return false
	}
	for k, want := range filter {
		got, ok := obj[k]
		if !ok {
			return false
		}
		gb, _ := json.Marshal(got)
		wb, _ := json.Marshal(want)
		if string(gb) != string(wb) {
			return false
		}
	}
	return true
}

// querySQL answers SELECT with every document and row, and any other
// statement with a zero-row write.
func (s *Server) querySQL(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SQL   string `json:"sql"`
		Limit *int   `json:"limit"`
	}
	if !decode(w, r, &in) {
		return
	}
	stmt := strings.ToUpper(strings.TrimSpace(in.SQL))
	switch {
	case stmt == "":
		writeError(w, http.StatusBadRequest, "empty SQL")
	case strings.HasPrefix(stmt, "SELECT"):
		s.mu.Lock()
		rows := [][]any{}
		for _, f := range []family{familyDoc, familyRow} {
			for _, id := range s.store.order[f] {
				rows = append(rows, pair(id, s.store.records[f][id].Data))
			}
		}
		s.mu.Unlock()
		if in.Limit != nil && len(rows) > *in.Limit {
			rows = rows[:*in.Limit]
		}
		writeData(w, map[string]any{"kind": "select", "rows": rows})
	case strings.HasPrefix(stmt, "INSERT"):
		writeData(w, map[string]any{"kind": "insert", "ids": []uuid.UUID{uuid.New()}})
	default:
		writeData(w, map[string]any{"kind": "write", "affected": 0})
	}
}

func (s *Server) addEdge(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Src    uuid.UUID `json:"src"`
		Dst    uuid.UUID `json:"dst"`
		Weight *float32  `json:"weight"`
	}
	if !decode(w, r, &in) {
		return
	}
	weight := float32(1)
	if in.Weight != nil {
		weight = *in.Weight
	}
	s.mu.Lock()
	edges := s.store.adj[in.Src]
	replaced := false
	for i := range edges {
		if edges[i].Dst == in.Dst {
			edges[i].Weight = weight
			replaced = true
		}
	}
	if !replaced {
		edges = append(edges, edge{Src: in.Src, Dst: in.Dst, Weight: weight})
	}
	s.store.adj[in.Src] = edges
	s.mu.Unlock()
	writeData(w, "ok")
}

type traversal int

const (
	traverseNeighbors traversal = iota
	traverseBFS
	traverseDFS
)

func (s *Server) traverse(kind traversal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		var out []edge
		switch kind {
		case traverseNeighbors:
			out = append(out, s.store.adj[id]...)
		case traverseBFS:
			out = s.store.bfs(id)
		case traverseDFS:
			out = s.store.dfs(id)
		}
		s.mu.Unlock()
		if out == nil {
			out = []edge{}
		}
		writeData(w, out)
	}
}

func (st *store) bfs(start uuid.UUID) []edge {
	var out []edge
	seen := map[uuid.UUID]bool{start: true}
	queue := []uuid.UUID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range st.adj[cur] {
			out = append(out, e)
			if !seen[e.Dst] {
				seen[e.Dst] = true
				queue = append(queue, e.Dst)
			}
		}
	}
	return out
}

func (st *store) dfs(start uuid.UUID) []edge {
	var out []edge
	seen := map[uuid.UUID]bool{}
	var visit func(uuid.UUID)
	visit = func(id uuid.UUID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, e := range st.adj[id] {
			out = append(out, e)
			visit(e.Dst)
		}
	}
	visit(start)
	return out
}
