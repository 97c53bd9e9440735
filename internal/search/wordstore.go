package search

import (
	"context"
	"fmt"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

const defaultClearBatch = 100

// CountKind selects what WordStore.Count counts.
type CountKind int

const (
	// CountDocuments counts distinct document names.
	CountDocuments CountKind = iota
	// CountWords counts distinct word texts.
	CountWords
	// CountOccurrences counts word mapping rows.
	CountOccurrences
)

// Occurrence is one position of a word inside a document.
type Occurrence struct {
	Word           string
	Location       data.WordLocation
	WordIndex      int
	FirstCharIndex int
}

// DocumentMatch groups the occurrences of a word in one document.
type DocumentMatch struct {
	Document    Document
	Occurrences []Occurrence
}

// Backend is what the engine needs from persistence.
type Backend interface {
	FindWord(ctx context.Context, word string) (map[string]*DocumentMatch, error)
	StoreWords(ctx context.Context, doc Document, words []Occurrence) error
	DeleteDocument(ctx context.Context, documentName string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context, kind CountKind) (int, error)
}

// WordStore persists word mappings of one wiki in the IndexWordMapping table.
// The backing store has no secondary indexes or aggregates, so lookups by word
// and all counts scan the wiki partition.
type WordStore struct {
	client    table.Client
	wiki      string
	batchSize int
}

var _ Backend = (*WordStore)(nil)

// NewWordStore creates a WordStore. batchSize bounds the deletes committed at
// once by Clear.
func NewWordStore(client table.Client, wiki string, batchSize int) *WordStore {
	if batchSize <= 0 || batchSize > table.MaxBatchSize {
		batchSize = defaultClearBatch
	}
	return &WordStore{client: client, wiki: wiki, batchSize: batchSize}
}

func (s *WordStore) scan(ctx context.Context, q table.Query) ([]*data.WordMapping, error) {
	q.PartitionKey = s.wiki
	rows, err := s.client.Query(ctx, data.TableIndexWordMapping, q)
	if err != nil {
		return nil, err
	}
	out := make([]*data.WordMapping, 0, len(rows))
	for _, row := range rows {
		m, err := data.WordMappingFromEntity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// FindWord returns the occurrences of word grouped by document, or nil if the
// word is not indexed.
func (s *WordStore) FindWord(ctx context.Context, word string) (map[string]*DocumentMatch, error) {
	mappings, err := s.scan(ctx, table.Query{Filter: func(e *table.Entity) bool {
		return e.Fields[data.FieldWord] == word
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to find word %q: %w", word, err)
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	matches := make(map[string]*DocumentMatch)
	for _, m := range mappings {
		dm, ok := matches[m.DocumentName]
		if !ok {
			dm = &DocumentMatch{Document: Document{
				Name:     m.DocumentName,
				Title:    m.DocumentTitle,
				TypeTag:  m.TypeTag,
				DateTime: m.DateTime,
			}}
			matches[m.DocumentName] = dm
		}
		dm.Occurrences = append(dm.Occurrences, Occurrence{
			Word:           m.Word,
			Location:       m.Location,
			WordIndex:      m.WordIndex,
			FirstCharIndex: m.FirstCharIndex,
		})
	}
	return matches, nil
}

// StoreWords inserts one row per occurrence.
func (s *WordStore) StoreWords(ctx context.Context, doc Document, words []Occurrence) error {
	if len(words) == 0 {
		return nil
	}
	ops := make([]table.Operation, 0, len(words))
	for _, w := range words {
		ops = append(ops, table.Upsert(data.WordMappingEntity(s.wiki, &data.WordMapping{
			Word:           w.Word,
			DocumentName:   doc.Name,
			Location:       w.Location,
			WordIndex:      w.WordIndex,
			FirstCharIndex: w.FirstCharIndex,
			DocumentTitle:  doc.Title,
			TypeTag:        doc.TypeTag,
			DateTime:       doc.DateTime,
		})))
	}
	if err := s.client.Execute(ctx, data.TableIndexWordMapping, ops); err != nil {
		return fmt.Errorf("failed to store words of %s: %w", doc.Name, err)
	}
	return nil
}

// DeleteDocument deletes every row of a document.
func (s *WordStore) DeleteDocument(ctx context.Context, documentName string) error {
	rows, err := s.client.Query(ctx, data.TableIndexWordMapping, table.Query{
		PartitionKey: s.wiki,
		RowKeyPrefix: data.WordMappingKeyPrefix(documentName),
		Filter: func(e *table.Entity) bool {
			return e.Fields[data.FieldDocumentName] == documentName
		},
	})
	if err != nil {
		return fmt.Errorf("failed to list words of %s: %w", documentName, err)
	}
	if len(rows) == 0 {
		return nil
	}
	ops := make([]table.Operation, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, table.Delete(row.PartitionKey, row.RowKey))
	}
	if err := s.client.Execute(ctx, data.TableIndexWordMapping, ops); err != nil {
		return fmt.Errorf("failed to delete words of %s: %w", documentName, err)
	}
	return nil
}

// Clear deletes every row of the wiki, committing batchSize deletes at a time.
func (s *WordStore) Clear(ctx context.Context) error {
	rows, err := s.client.Query(ctx, data.TableIndexWordMapping, table.Query{PartitionKey: s.wiki})
	if err != nil {
		return fmt.Errorf("failed to list index rows: %w", err)
	}
	ops := make([]table.Operation, 0, s.batchSize)
	for _, row := range rows {
		ops = append(ops, table.Delete(row.PartitionKey, row.RowKey))
		if len(ops) == s.batchSize {
			if err := s.client.Execute(ctx, data.TableIndexWordMapping, ops); err != nil {
				return fmt.Errorf("failed to clear index: %w", err)
			}
			ops = ops[:0]
		}
	}
	if len(ops) > 0 {
		if err := s.client.Execute(ctx, data.TableIndexWordMapping, ops); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}
	return nil
}

// Count scans the wiki partition and counts in memory.
func (s *WordStore) Count(ctx context.Context, kind CountKind) (int, error) {
	rows, err := s.client.Query(ctx, data.TableIndexWordMapping, table.Query{PartitionKey: s.wiki})
	if err != nil {
		return 0, fmt.Errorf("failed to count index rows: %w", err)
	}
	switch kind {
	case CountOccurrences:
		return len(rows), nil
	case CountDocuments, CountWords:
		field := data.FieldDocumentName
		if kind == CountWords {
			field = data.FieldWord
		}
		distinct := make(map[string]struct{})
		for _, row := range rows {
			distinct[row.Fields[field]] = struct{}{}
		}
		return len(distinct), nil
	default:
		return 0, fmt.Errorf("unknown count kind %d", kind)
	}
}
