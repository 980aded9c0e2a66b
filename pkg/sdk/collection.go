package pieskieo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Collection is a typed handle over the documents of one collection.
// T must round-trip through encoding/json.
type Collection[T any] struct {
	client *Client
	scope  DocScope
}

// Item is a typed query hit.
type Item[T any] struct {
	ID    uuid.UUID
	Value T
}

// NewCollection creates a typed handle. An empty namespace uses the server default.
func NewCollection[T any](client *Client, namespace, name string) *Collection[T] {
	return &Collection[T]{
		client: client,
		scope:  DocScope{Namespace: namespace, Collection: name},
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.scope.Collection }

// Put stores item under id, generating one when id is zero.
func (c *Collection[T]) Put(ctx context.Context, id uuid.UUID, item T) (uuid.UUID, error) {
	return c.client.PutDoc(ctx, DocInput{
		ID:         id,
		Data:       item,
		Namespace:  c.scope.Namespace,
		Collection: c.scope.Collection,
	})
}

// Get fetches and decodes a document.
func (c *Collection[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var item T
	raw, err := c.client.GetDoc(ctx, id, c.scope)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, &DecodeError{Path: docPath(id), Err: err}
	}
	return item, nil
}

// Delete removes a document.
func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.DeleteDoc(ctx, id, c.scope)
}

// Query returns a fluent exact-match query builder for this collection.
func (c *Collection[T]) Query() *QueryBuilder[T] {
	return &QueryBuilder[T]{coll: c, filter: map[string]any{}}
}

// QueryBuilder is a fluent builder for typed document queries.
type QueryBuilder[T any] struct {
	coll   *Collection[T]
	filter map[string]any
	limit  int
	offset int
	sql    string
}

// Where adds an exact-match condition on a top-level field.
func (b *QueryBuilder[T]) Where(key string, value any) *QueryBuilder[T] {
	b.filter[key] = value
	return b
}

// Limit sets the maximum number of hits. Default: 100.
func (b *QueryBuilder[T]) Limit(n int) *QueryBuilder[T] {
	b.limit = n
	return b
}

// Offset skips the first n hits.
func (b *QueryBuilder[T]) Offset(n int) *QueryBuilder[T] {
	b.offset = n
	return b
}

// SQL switches to a raw query. Conditions, limit and offset are then ignored.
func (b *QueryBuilder[T]) SQL(stmt string) *QueryBuilder[T] {
	b.sql = stmt
	return b
}

// Do executes the query and decodes every hit.
func (b *QueryBuilder[T]) Do(ctx context.Context) ([]Item[T], error) {
	recs, err := b.coll.client.QueryDocs(ctx, QueryInput{
		Filter:     b.filter,
		Limit:      b.limit,
		Offset:     b.offset,
		Namespace:  b.coll.scope.Namespace,
		Collection: b.coll.scope.Collection,
		SQL:        b.sql,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Item[T], len(recs))
	for i, r := range recs {
		out[i].ID = r.ID
		if err := r.Decode(&out[i].Value); err != nil {
			return nil, fmt.Errorf("hit %d: %w", i, err)
		}
	}
	return out, nil
}
