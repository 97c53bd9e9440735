// Package store is the versioned page-content store of one wiki.
//
// It persists namespaces, pages, revisions, categories, navigation paths,
// messages, snippets and templates through a table.Client, keeps a local read
// cache coherent with its own writes, and keeps the search index in step with
// every content mutation through a search.Synchronizer.
//
// A Store assumes it is the only writer of its wiki. Multi-row operations are
// ordered lists of idempotent steps; a failure stops the list and leaves the
// steps already committed in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-wiki-store/internal/cache"
	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/table"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a name is taken or an immutability rule applies.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is returned for malformed input, before any I/O.
	ErrInvalidArgument = errors.New("invalid argument")
)

// IndexStatus reports search index health after a committed content write.
type IndexStatus = search.IndexStatus

// Index is the query side of the search engine.
type Index interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (search.Stats, error)
}

// Store is the content store of a single wiki.
type Store struct {
	client table.Client
	cache  *cache.Cache
	sync   *search.Synchronizer
	index  Index
	wiki   string
	log    logger.Logger
	newID  func() string
}

// New creates a Store for wiki.
func New(client table.Client, c *cache.Cache, sync *search.Synchronizer, index Index, wiki string, log logger.Logger) *Store {
	return &Store{
		client: client,
		cache:  c,
		sync:   sync,
		index:  index,
		wiki:   wiki,
		log:    log.With(map[string]interface{}{"component": "store", "wiki": wiki}),
		newID:  uuid.NewString,
	}
}

// Init creates every table the store uses.
func (s *Store) Init(ctx context.Context) error {
	for _, t := range data.Tables {
		if err := s.client.CreateTableIfMissing(ctx, t); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t, err)
		}
	}
	return nil
}

// Wiki returns the wiki this store serves.
func (s *Store) Wiki() string {
	return s.wiki
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// validateName checks a name stored in a NameList or used as a row key.
func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("%s name is empty", kind)
	}
	if strings.Contains(name, data.NameListSeparator) {
		return invalid("%s name %q contains %q", kind, name, data.NameListSeparator)
	}
	return nil
}

// validateContent checks a revision before it is written. Keywords are
// persisted as a NameList, so they follow the same rules as names.
func validateContent(content *data.PageContent) error {
	if content == nil {
		return invalid("content is required")
	}
	for _, k := range content.Keywords {
		if err := validateName("keyword", k); err != nil {
			return err
		}
	}
	return nil
}

// validateLocalName checks a name that gets qualified by a namespace.
func validateLocalName(kind, name string) error {
	if err := validateName(kind, name); err != nil {
		return err
	}
	if strings.Contains(name, ".") {
		return invalid("%s name %q contains '.'", kind, name)
	}
	return nil
}

func validatePage(page *data.PageInfo) error {
	if page == nil || page.FullName == "" {
		return invalid("page is required")
	}
	return nil
}

// step is one independently committed unit of a multi-row operation.
// Running a step twice must leave the same state as running it once.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps runs steps in order and stops at the first failure, which is
// logged together with the steps already committed.
func (s *Store) runSteps(ctx context.Context, operation string, steps []step) error {
	log := s.log.With(map[string]interface{}{"operation": operation})
	completed := make([]string, 0, len(steps))
	for _, st := range steps {
		log.Debug(fmt.Sprintf("Running step %s", st.name))
		if err := st.run(ctx); err != nil {
			log.With(map[string]interface{}{
				"step":      st.name,
				"completed": strings.Join(completed, ","),
			}).Error(err, "Operation stopped with partial changes applied")
			return fmt.Errorf("%s: step %s: %w", operation, st.name, err)
		}
		completed = append(completed, st.name)
	}
	return nil
}

// execute commits ops unless there are none.
func (s *Store) execute(ctx context.Context, tableName string, ops []table.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	if err := s.client.Execute(ctx, tableName, ops); err != nil {
		return fmt.Errorf("failed to write %s: %w", tableName, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, tableName string, q table.Query) ([]*table.Entity, error) {
	if q.PartitionKey == "" {
		q.PartitionKey = s.wiki
	}
	rows, err := s.client.Query(ctx, tableName, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	return rows, nil
}

func (s *Store) get(ctx context.Context, tableName, partitionKey, rowKey string) (*table.Entity, error) {
	e, err := s.client.Get(ctx, tableName, partitionKey, rowKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s/%s: %w", tableName, partitionKey, rowKey, err)
	}
	return e, nil
}

// inNamespace selects rows whose namespace field equals ns.
func inNamespace(ns string) func(*table.Entity) bool {
	return func(e *table.Entity) bool {
		got, _ := data.SplitFullName(e.RowKey)
		return got == ns
	}
}

// renameInNamespace rewrites a full name from one namespace to another.
func renameInNamespace(fullName, newNamespace string) string {
	_, local := data.SplitFullName(fullName)
	return data.FullName(newNamespace, local)
}

func sortPages(pages []*data.PageInfo) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].FullName < pages[j].FullName })
}
