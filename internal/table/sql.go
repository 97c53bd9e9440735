package table

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// SQLClient is a Client backed by one SQL table per logical table.
// Rows are stored as (partition_key, row_key, fields) with the field set
// encoded as a JSON object.
type SQLClient struct {
	db      *sqlx.DB
	dialect dialect
}

var _ Client = (*SQLClient)(nil)

// NewSQLClient creates a new SQLClient for a connection opened with driver.
func NewSQLClient(db *sqlx.DB, driver string) (*SQLClient, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLClient{db: db, dialect: d}, nil
}

type entityRow struct {
	PartitionKey string `db:"partition_key"`
	RowKey       string `db:"row_key"`
	Fields       string `db:"fields"`
}

func (r entityRow) toEntity() (*Entity, error) {
	e := NewEntity(r.PartitionKey, r.RowKey)
	if r.Fields != "" {
		if err := json.Unmarshal([]byte(r.Fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode fields of %s/%s: %w", r.PartitionKey, r.RowKey, err)
		}
	}
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	return e, nil
}

func (c *SQLClient) checkTable(table string) error {
	if !validTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// CreateTableIfMissing creates the backing SQL table.
func (c *SQLClient) CreateTableIfMissing(ctx context.Context, table string) error {
	if err := c.checkTable(table); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf(c.dialect.createTable, table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// Get retrieves a single entity. Not found is not an error.
func (c *SQLClient) Get(ctx context.Context, table, partitionKey, rowKey string) (*Entity, error) {
	if err := c.checkTable(table); err != nil {
		return nil, err
	}
	var row entityRow
	query := fmt.Sprintf(`SELECT partition_key, row_key, fields FROM %s WHERE partition_key = ? AND row_key = ?`, table)
	if err := c.db.GetContext(ctx, &row, query, partitionKey, rowKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s/%s from %s: %w", partitionKey, rowKey, table, err)
	}
	return row.toEntity()
}

// Query retrieves the rows of a partition, ordered by row key.
// The row key prefix is applied in SQL, the filter in memory.
func (c *SQLClient) Query(ctx context.Context, table string, q Query) ([]*Entity, error) {
	if err := c.checkTable(table); err != nil {
		return nil, err
	}
	var rows []entityRow
	var err error
	if q.RowKeyPrefix == "" {
		query := fmt.Sprintf(`SELECT partition_key, row_key, fields FROM %s WHERE partition_key = ? ORDER BY row_key`, table)
		err = c.db.SelectContext(ctx, &rows, query, q.PartitionKey)
	} else {
		query := fmt.Sprintf(`SELECT partition_key, row_key, fields FROM %s WHERE partition_key = ? AND SUBSTR(row_key, 1, ?) = ? ORDER BY row_key`, table)
		err = c.db.SelectContext(ctx, &rows, query, q.PartitionKey, utf8.RuneCountInString(q.RowKeyPrefix), q.RowKeyPrefix)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s partition %s: %w", table, q.PartitionKey, err)
	}

	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		if q.Filter == nil || q.Filter(e) {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// Execute commits ops. Each partition chunk runs in its own transaction.
func (c *SQLClient) Execute(ctx context.Context, table string, ops []Operation) error {
	if err := c.checkTable(table); err != nil {
		return err
	}
	chunks, err := partitionChunks(ops)
	if err != nil {
		return err
	}
	upsert := fmt.Sprintf(`REPLACE INTO %s (partition_key, row_key, fields) VALUES (:partition_key, :row_key, :fields)`, table)
	remove := fmt.Sprintf(`DELETE FROM %s WHERE partition_key = ? AND row_key = ?`, table)

	for _, chunk := range chunks {
		if err := c.commitChunk(ctx, chunk, upsert, remove); err != nil {
			return fmt.Errorf("failed to commit batch on %s: %w", table, err)
		}
	}
	return nil
}

func (c *SQLClient) commitChunk(ctx context.Context, chunk []Operation, upsert, remove string) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, op := range chunk {
		switch op.Kind {
		case OpUpsert:
			fields, err := json.Marshal(op.Entity.Fields)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			row := entityRow{PartitionKey: op.Entity.PartitionKey, RowKey: op.Entity.RowKey, Fields: string(fields)}
			if _, err := tx.NamedExecContext(ctx, upsert, row); err != nil {
				_ = tx.Rollback()
				return err
			}
		case OpDelete:
			if _, err := tx.ExecContext(ctx, remove, op.Entity.PartitionKey, op.Entity.RowKey); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}
