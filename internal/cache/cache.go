// Package cache provides the per-store local read cache.
//
// A Cache belongs to exactly one store instance and is invalidated by that
// store's own writes (invalidate-on-write). Writes made through another
// process or another store instance are not observed; the store assumes it
// is the only writer of its wiki.
package cache

import (
	"fmt"
	"strings"
	"sync"

	"go-wiki-store/internal/config"
	"go-wiki-store/internal/data"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultContentSize = 512

// Cache holds page metadata by full name and page revisions by page id and
// revision key. Values are copied in and out so callers cannot alias cached
// state.
type Cache struct {
	mu    sync.Mutex
	pages map[string]data.PageInfo
	// complete is set when pages holds every page of the wiki.
	complete bool

	contents *lru.Cache[string, data.PageContent]
}

// New creates a new Cache instance sized by cfg.
func New(cfg config.CacheConfig) (*Cache, error) {
	size := cfg.PageContentSize
	if size <= 0 {
		size = defaultContentSize
	}
	contents, err := lru.New[string, data.PageContent](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create page content cache: %w", err)
	}
	return &Cache{pages: make(map[string]data.PageInfo), contents: contents}, nil
}

// GetPage returns the cached metadata of a page.
func (c *Cache) GetPage(fullName string) (*data.PageInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[fullName]
	if !ok {
		return nil, false
	}
	return &p, true
}

// SetPage caches the metadata of a page.
func (c *Cache) SetPage(p *data.PageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[p.FullName] = *p
}

// InvalidatePage drops the metadata of a page and marks the page set incomplete.
func (c *Cache) InvalidatePage(fullName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, fullName)
	c.complete = false
}

// AllPages returns every cached page if the cache holds the complete set.
func (c *Cache) AllPages() ([]*data.PageInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.complete {
		return nil, false
	}
	out := make([]*data.PageInfo, 0, len(c.pages))
	for _, p := range c.pages {
		p := p
		out = append(out, &p)
	}
	return out, true
}

// SetAllPages replaces the page metadata with a complete set.
func (c *Cache) SetAllPages(pages []*data.PageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string]data.PageInfo, len(pages))
	for _, p := range pages {
		c.pages[p.FullName] = *p
	}
	c.complete = true
}

func contentKey(pageID, revision string) string {
	return pageID + "|" + revision
}

// GetContent returns a cached revision.
func (c *Cache) GetContent(pageID, revision string) (*data.PageContent, bool) {
	v, ok := c.contents.Get(contentKey(pageID, revision))
	if !ok {
		return nil, false
	}
	return copyContent(&v), true
}

// SetContent caches a revision.
func (c *Cache) SetContent(pageID, revision string, content *data.PageContent) {
	c.contents.Add(contentKey(pageID, revision), *copyContent(content))
}

// InvalidateContent drops one cached revision.
func (c *Cache) InvalidateContent(pageID, revision string) {
	c.contents.Remove(contentKey(pageID, revision))
}

// InvalidatePageContents drops every cached revision of a page.
func (c *Cache) InvalidatePageContents(pageID string) {
	prefix := pageID + "|"
	for _, k := range c.contents.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.contents.Remove(k)
		}
	}
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.pages = make(map[string]data.PageInfo)
	c.complete = false
	c.mu.Unlock()
	c.contents.Purge()
}

// Close releases the cached values.
func (c *Cache) Close() error {
	c.Clear()
	return nil
}

func copyContent(in *data.PageContent) *data.PageContent {
	out := *in
	if in.Keywords != nil {
		out.Keywords = append([]string(nil), in.Keywords...)
	}
	return &out
}
