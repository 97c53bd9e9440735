package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
)

// messageSeparator joins a page full name and a message id in a document name.
const messageSeparator = "..."

// ErrNoWordsIndexed is reported when non-empty text produced no index rows.
var ErrNoWordsIndexed = errors.New("no words indexed for non-empty document")

// Indexer is the part of the index engine the synchronizer drives.
type Indexer interface {
	StoreDocument(ctx context.Context, doc Document, keywords []string, body string) (int, error)
	RemoveDocument(ctx context.Context, doc Document) error
}

// IndexStatus reports the health of the search index after a content write
// that already committed. A degraded status never means the content write failed.
type IndexStatus struct {
	Degraded bool
	Err      error
}

// Merge combines two statuses.
func (s IndexStatus) Merge(o IndexStatus) IndexStatus {
	return IndexStatus{Degraded: s.Degraded || o.Degraded, Err: errors.Join(s.Err, o.Err)}
}

func degraded(err error) IndexStatus {
	return IndexStatus{Degraded: true, Err: err}
}

// PageDocumentName is the document name of a page.
func PageDocumentName(fullName string) string {
	return fullName
}

// MessageDocumentName is the document name of a message of a page.
func MessageDocumentName(pageFullName string, id int) string {
	return pageFullName + messageSeparator + strconv.Itoa(id)
}

// ParseMessageDocumentName splits a message document name.
func ParseMessageDocumentName(name string) (pageFullName string, id int, ok bool) {
	i := strings.LastIndex(name, messageSeparator)
	if i < 0 {
		return "", 0, false
	}
	id, err := strconv.Atoi(name[i+len(messageSeparator):])
	if err != nil {
		return "", 0, false
	}
	return name[:i], id, true
}

// NormalizeSubject strips leading reply markers ("RE:", "Re: re:") from a subject.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for len(s) >= 3 && strings.EqualFold(s[:3], "re:") {
		s = strings.TrimSpace(s[3:])
	}
	return s
}

// Synchronizer keeps the search index in step with content mutations.
// Engine failures are logged and reported in IndexStatus, never returned as errors.
type Synchronizer struct {
	engine    Indexer
	preparer  Preparer
	log       logger.Logger
	corrupted atomic.Bool
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(engine Indexer, preparer Preparer, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		engine:   engine,
		preparer: preparer,
		log:      log.With(map[string]interface{}{"component": "index"}),
	}
}

// Corrupted reports whether a non-empty document indexed zero words since the
// last ResetCorrupted.
func (s *Synchronizer) Corrupted() bool {
	return s.corrupted.Load()
}

// ResetCorrupted clears the corruption flag, after a rebuild.
func (s *Synchronizer) ResetCorrupted() {
	s.corrupted.Store(false)
}

func (s *Synchronizer) store(ctx context.Context, doc Document, keywords []string, body string) IndexStatus {
	count, err := s.engine.StoreDocument(ctx, doc, keywords, body)
	if err != nil {
		s.log.Error(err, fmt.Sprintf("Failed to index document %s", doc.Name))
		return degraded(err)
	}
	if count == 0 && strings.TrimSpace(body) != "" {
		s.corrupted.Store(true)
		s.log.Warn(fmt.Sprintf("Indexed 0 words for document %s: possible index corruption", doc.Name))
		return degraded(fmt.Errorf("%w: %s", ErrNoWordsIndexed, doc.Name))
	}
	return IndexStatus{}
}

func (s *Synchronizer) remove(ctx context.Context, name string) IndexStatus {
	if err := s.engine.RemoveDocument(ctx, Document{Name: name}); err != nil {
		s.log.Error(err, fmt.Sprintf("Failed to unindex document %s", name))
		return degraded(err)
	}
	return IndexStatus{}
}

// IndexPage indexes the given revision as the live document of page.
func (s *Synchronizer) IndexPage(ctx context.Context, page *data.PageInfo, content *data.PageContent) IndexStatus {
	doc := Document{
		Name:     PageDocumentName(page.FullName),
		Title:    s.preparer.PrepareTitle(page, content.Title),
		TypeTag:  TypePage,
		DateTime: content.LastModified,
	}
	return s.store(ctx, doc, content.Keywords, s.preparer.PrepareContent(page, content.Content))
}

// UnindexPage removes the live document of page.
func (s *Synchronizer) UnindexPage(ctx context.Context, page *data.PageInfo) IndexStatus {
	return s.remove(ctx, PageDocumentName(page.FullName))
}

// IndexMessage indexes one message of page.
func (s *Synchronizer) IndexMessage(ctx context.Context, page *data.PageInfo, m *data.Message) IndexStatus {
	doc := Document{
		Name:     MessageDocumentName(page.FullName, m.ID),
		Title:    NormalizeSubject(s.preparer.PrepareTitle(page, m.Subject)),
		TypeTag:  TypeMessage,
		DateTime: m.DateTime,
	}
	return s.store(ctx, doc, nil, s.preparer.PrepareContent(page, m.Body))
}

// UnindexMessage removes one message document of page.
func (s *Synchronizer) UnindexMessage(ctx context.Context, page *data.PageInfo, id int) IndexStatus {
	return s.remove(ctx, MessageDocumentName(page.FullName, id))
}

// IndexMessageTree indexes every message of a tree.
func (s *Synchronizer) IndexMessageTree(ctx context.Context, page *data.PageInfo, messages []*data.Message) IndexStatus {
	var st IndexStatus
	for _, m := range messages {
		st = st.Merge(s.IndexMessage(ctx, page, m))
		st = st.Merge(s.IndexMessageTree(ctx, page, m.Replies))
	}
	return st
}

// UnindexMessageTree removes every message of a tree.
func (s *Synchronizer) UnindexMessageTree(ctx context.Context, page *data.PageInfo, messages []*data.Message) IndexStatus {
	var st IndexStatus
	for _, m := range messages {
		st = st.Merge(s.UnindexMessage(ctx, page, m.ID))
		st = st.Merge(s.UnindexMessageTree(ctx, page, m.Replies))
	}
	return st
}
