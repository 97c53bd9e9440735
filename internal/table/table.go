// Package table provides a generic partition/row-key table client.
//
// Every entity lives in a named table and is addressed by a partition key and
// a row key. Writes are issued as batches of operations; the client groups a
// batch by partition and commits each group (in chunks of at most
// MaxBatchSize operations) atomically. There is no atomicity across
// partitions or across chunks.
package table

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MaxBatchSize is the largest number of operations committed atomically.
const MaxBatchSize = 100

// Entity is a single row: two keys and a flat set of string fields.
type Entity struct {
	PartitionKey string
	RowKey       string
	Fields       map[string]string
}

// NewEntity returns an entity with an empty field set.
func NewEntity(partitionKey, rowKey string) *Entity {
	return &Entity{PartitionKey: partitionKey, RowKey: rowKey, Fields: make(map[string]string)}
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	c := NewEntity(e.PartitionKey, e.RowKey)
	for k, v := range e.Fields {
		c.Fields[k] = v
	}
	return c
}

// OpKind is the kind of a batch operation.
type OpKind int

const (
	// OpUpsert inserts the entity or replaces all fields of an existing one.
	OpUpsert OpKind = iota
	// OpDelete removes the entity. Deleting an absent entity is not an error.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is one write inside a batch.
type Operation struct {
	Kind   OpKind
	Entity *Entity
}

// Upsert builds an upsert operation.
func Upsert(e *Entity) Operation { return Operation{Kind: OpUpsert, Entity: e} }

// Delete builds a delete operation for the given keys.
func Delete(partitionKey, rowKey string) Operation {
	return Operation{Kind: OpDelete, Entity: NewEntity(partitionKey, rowKey)}
}

// Query selects rows of a single partition. RowKeyPrefix and Filter are optional.
type Query struct {
	PartitionKey string
	RowKeyPrefix string
	Filter       func(*Entity) bool
}

func (q Query) matches(e *Entity) bool {
	if q.RowKeyPrefix != "" && !strings.HasPrefix(e.RowKey, q.RowKeyPrefix) {
		return false
	}
	return q.Filter == nil || q.Filter(e)
}

// Client is the table store contract consumed by the content store and the
// search index adapter.
type Client interface {
	// CreateTableIfMissing makes sure the named table exists.
	CreateTableIfMissing(ctx context.Context, table string) error
	// Get returns the addressed entity, or nil if it does not exist.
	Get(ctx context.Context, table, partitionKey, rowKey string) (*Entity, error)
	// Query returns the matching entities ordered by row key.
	Query(ctx context.Context, table string, q Query) ([]*Entity, error)
	// Execute commits ops, atomically per partition and chunk.
	Execute(ctx context.Context, table string, ops []Operation) error
}

// partitionChunks groups ops by partition key, preserving their relative
// order, and splits each group into chunks of at most MaxBatchSize.
// A batch may not address the same row twice; the later operation wins
// inside a chunk in both implementations, but callers should not rely on it.
func partitionChunks(ops []Operation) ([][]Operation, error) {
	groups := make(map[string][]Operation)
	var order []string
	for _, op := range ops {
		if op.Entity == nil {
			return nil, fmt.Errorf("batch operation %s has no entity", op.Kind)
		}
		if op.Kind != OpUpsert && op.Kind != OpDelete {
			return nil, fmt.Errorf("unsupported batch operation %d", op.Kind)
		}
		pk := op.Entity.PartitionKey
		if _, ok := groups[pk]; !ok {
			order = append(order, pk)
		}
		groups[pk] = append(groups[pk], op)
	}

	var chunks [][]Operation
	for _, pk := range order {
		group := groups[pk]
		for len(group) > MaxBatchSize {
			chunks = append(chunks, group[:MaxBatchSize])
			group = group[MaxBatchSize:]
		}
		chunks = append(chunks, group)
	}
	return chunks, nil
}

func sortByRowKey(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool { return entities[i].RowKey < entities[j].RowKey })
}
