//go:build unit || integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-wiki-store/internal/cache"
	"go-wiki-store/internal/config"
	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/table"

	"github.com/stretchr/testify/require"
)

const testWiki = "wiki"

var errInjected = errors.New("injected failure")

// faultyClient wraps a table client and fails the writes selected by fail.
type faultyClient struct {
	table.Client
	mu   sync.Mutex
	fail func(tableName string, ops []table.Operation) bool
}

func (c *faultyClient) Execute(ctx context.Context, tableName string, ops []table.Operation) error {
	c.mu.Lock()
	fail := c.fail
	c.mu.Unlock()
	if fail != nil && fail(tableName, ops) {
		return errInjected
	}
	return c.Client.Execute(ctx, tableName, ops)
}

func (c *faultyClient) failTable(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = func(tableName string, _ []table.Operation) bool { return tableName == name }
}

func (c *faultyClient) heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = nil
}

type testEnv struct {
	ctx    context.Context
	store  *Store
	client *faultyClient
	engine *search.Engine
}

func newTestEnvWithClient(t *testing.T, base table.Client) *testEnv {
	t.Helper()
	ctx := context.Background()
	client := &faultyClient{Client: base}
	c, err := cache.New(config.CacheConfig{PageContentSize: 64})
	require.NoError(t, err)
	engine := search.NewEngine(search.NewWordStore(client, testWiki, 50))
	synchronizer := search.NewSynchronizer(engine, search.NewMarkupPreparer(), logger.Nop())
	s := New(client, c, synchronizer, engine, testWiki, logger.Nop())
	require.NoError(t, s.Init(ctx))
	return &testEnv{ctx: ctx, store: s, client: client, engine: engine}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClient(t, table.NewMemoryClient())
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func (e *testEnv) addNamespace(t *testing.T, name string) {
	t.Helper()
	_, err := e.store.AddNamespace(e.ctx, name)
	require.NoError(t, err)
}

func (e *testEnv) addPage(t *testing.T, ns, name string) *data.PageInfo {
	t.Helper()
	p, err := e.store.AddPage(e.ctx, ns, name, baseTime)
	require.NoError(t, err)
	return p
}

func (e *testEnv) save(t *testing.T, page *data.PageInfo, text string, mode data.SaveMode) {
	t.Helper()
	st, err := e.store.ModifyPage(e.ctx, page, &data.PageContent{
		Title:        page.LocalName(),
		User:         "alice",
		LastModified: baseTime,
		Content:      text,
	}, mode)
	require.NoError(t, err)
	require.False(t, st.Degraded, "index degraded: %v", st.Err)
}

func (e *testEnv) searchNames(t *testing.T, query string) []string {
	t.Helper()
	hits, err := e.store.Search(e.ctx, query)
	require.NoError(t, err)
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.Page.FullName)
	}
	return names
}
