package table

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is an in-memory implementation of Client intended for tests
// and for running the store without a database.
//
// It is safe for concurrent use. Each chunk of a batch is applied under the
// write lock, which gives the same per-partition atomicity as the SQL client.
type MemoryClient struct {
	mu sync.RWMutex
	// tables maps table name -> partition key -> row key -> entity.
	tables map[string]map[string]map[string]*Entity
}

var _ Client = (*MemoryClient)(nil)

// NewMemoryClient constructs an empty in-memory table store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{tables: make(map[string]map[string]map[string]*Entity)}
}

func (c *MemoryClient) CreateTableIfMissing(ctx context.Context, table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[table]; !ok {
		c.tables[table] = make(map[string]map[string]*Entity)
	}
	return nil
}

func (c *MemoryClient) partitions(table string) (map[string]map[string]*Entity, error) {
	t, ok := c.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %q does not exist", table)
	}
	return t, nil
}

// Get returns a copy of the stored entity so callers cannot mutate the store.
func (c *MemoryClient) Get(ctx context.Context, table, partitionKey, rowKey string) (*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.partitions(table)
	if err != nil {
		return nil, err
	}
	e, ok := t[partitionKey][rowKey]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (c *MemoryClient) Query(ctx context.Context, table string, q Query) ([]*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.partitions(table)
	if err != nil {
		return nil, err
	}
	var out []*Entity
	for _, e := range t[q.PartitionKey] {
		cp := e.Clone()
		if q.matches(cp) {
			out = append(out, cp)
		}
	}
	sortByRowKey(out)
	return out, nil
}

func (c *MemoryClient) Execute(ctx context.Context, table string, ops []Operation) error {
	chunks, err := partitionChunks(ops)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.apply(table, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryClient) apply(table string, chunk []Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.partitions(table)
	if err != nil {
		return err
	}
	for _, op := range chunk {
		pk, rk := op.Entity.PartitionKey, op.Entity.RowKey
		switch op.Kind {
		case OpUpsert:
			if t[pk] == nil {
				t[pk] = make(map[string]*Entity)
			}
			t[pk][rk] = op.Entity.Clone()
		case OpDelete:
			delete(t[pk], rk)
			if len(t[pk]) == 0 {
				delete(t, pk)
			}
		default:
			return fmt.Errorf("unsupported batch operation %d", op.Kind)
		}
	}
	return nil
}

// Len returns the number of rows in a table, across all partitions.
func (c *MemoryClient) Len(table string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, p := range c.tables[table] {
		n += len(p)
	}
	return n
}
