//go:build unit

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *table.MemoryClient) {
	t.Helper()
	client := table.NewMemoryClient()
	require.NoError(t, client.CreateTableIfMissing(context.Background(), data.TableIndexWordMapping))
	return NewEngine(NewWordStore(client, "root", 10)), client
}

func TestTokenize(t *testing.T) {
	toks := tokenize("The Quick, brown-fox a 42!")
	words := make([]string, 0, len(toks))
	for _, tok := range toks {
		words = append(words, tok.word)
	}
	assert.Equal(t, []string{"quick", "brown", "fox", "42"}, words)
	assert.Equal(t, 4, toks[0].start)
}

func TestEngine_StoreAndSearch(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	n, err := e.StoreDocument(ctx, Document{Name: "Main", Title: "Gardening", TypeTag: TypePage}, []string{"plants"}, "How to grow tomatoes and plants")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	_, err = e.StoreDocument(ctx, Document{Name: "Other", Title: "Cooking", TypeTag: TypePage}, nil, "Tomatoes in sauce")
	require.NoError(t, err)

	res, err := e.Search(ctx, "tomatoes")
	require.NoError(t, err)
	require.Len(t, res, 2)

	res, err = e.Search(ctx, "plants tomatoes")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Main", res[0].Document.Name)
	assert.Equal(t, "Gardening", res[0].Document.Title)
	// plants: keywords(3) + content(1); tomatoes: content(1).
	assert.Equal(t, 5, res[0].Relevance)

	res, err = e.Search(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestEngine_StoreReplacesPreviousWords(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	doc := Document{Name: "Main", Title: "Page", TypeTag: TypePage}

	_, err := e.StoreDocument(ctx, doc, nil, "apples")
	require.NoError(t, err)
	_, err = e.StoreDocument(ctx, doc, nil, "oranges")
	require.NoError(t, err)

	res, err := e.Search(ctx, "apples")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = e.Search(ctx, "oranges")
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestEngine_RemoveDoesNotTouchPrefixSiblings(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.StoreDocument(ctx, Document{Name: "Main", TypeTag: TypePage}, nil, "shared word")
	require.NoError(t, err)
	_, err = e.StoreDocument(ctx, Document{Name: "Main...0", TypeTag: TypeMessage}, nil, "shared reply")
	require.NoError(t, err)

	require.NoError(t, e.RemoveDocument(ctx, Document{Name: "Main"}))

	res, err := e.Search(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Main...0", res[0].Document.Name)
}

func TestEngine_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	e, client := newTestEngine(t)

	_, err := e.StoreDocument(ctx, Document{Name: "A"}, nil, "alpha beta alpha")
	require.NoError(t, err)
	_, err = e.StoreDocument(ctx, Document{Name: "B"}, nil, "beta gamma")
	require.NoError(t, err)

	st, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Documents: 2, Words: 3, Occurrences: 5}, st)

	require.NoError(t, e.Clear(ctx))
	assert.Equal(t, 0, client.Len(data.TableIndexWordMapping))
}

func TestWordStore_ClearInBatches(t *testing.T) {
	ctx := context.Background()
	client := table.NewMemoryClient()
	require.NoError(t, client.CreateTableIfMissing(ctx, data.TableIndexWordMapping))
	ws := NewWordStore(client, "root", 3)

	words := make([]Occurrence, 0, 10)
	for i := 0; i < 10; i++ {
		words = append(words, Occurrence{Word: "w", Location: data.LocationContent, WordIndex: i})
	}
	require.NoError(t, ws.StoreWords(ctx, Document{Name: "Doc"}, words))
	require.Equal(t, 10, client.Len(data.TableIndexWordMapping))

	require.NoError(t, ws.Clear(ctx))
	assert.Equal(t, 0, client.Len(data.TableIndexWordMapping))
}

func TestMarkupPreparer(t *testing.T) {
	p := NewMarkupPreparer()
	page := &data.PageInfo{FullName: "Main"}

	got := p.PrepareContent(page, "# Heading\n\nSome **bold** & <script>x</script> text")
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "bold")
	assert.Contains(t, got, "&")
	assert.NotContains(t, got, "<")

	assert.Equal(t, "Title", p.PrepareTitle(page, "  <b>Title</b> "))
}

func TestDocumentNames(t *testing.T) {
	name := MessageDocumentName("Help.Main", 12)
	assert.Equal(t, "Help.Main...12", name)

	page, id, ok := ParseMessageDocumentName(name)
	require.True(t, ok)
	assert.Equal(t, "Help.Main", page)
	assert.Equal(t, 12, id)

	_, _, ok = ParseMessageDocumentName("Help.Main")
	assert.False(t, ok)
}

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "Question", NormalizeSubject("RE: Re:re: Question"))
	assert.Equal(t, "Reply guy", NormalizeSubject("Reply guy"))
	assert.Equal(t, "", NormalizeSubject("RE:"))
}

// fakeIndexer records calls and returns configured results.
type fakeIndexer struct {
	stored   []Document
	removed  []string
	count    int
	storeErr error
	rmErr    error
}

func (f *fakeIndexer) StoreDocument(ctx context.Context, doc Document, keywords []string, body string) (int, error) {
	f.stored = append(f.stored, doc)
	return f.count, f.storeErr
}

func (f *fakeIndexer) RemoveDocument(ctx context.Context, doc Document) error {
	f.removed = append(f.removed, doc.Name)
	return f.rmErr
}

func TestSynchronizer_IndexPage(t *testing.T) {
	ctx := context.Background()
	f := &fakeIndexer{count: 3}
	s := NewSynchronizer(f, NewMarkupPreparer(), logger.Nop())
	now := time.Now().UTC()

	st := s.IndexPage(ctx, &data.PageInfo{FullName: "Main"}, &data.PageContent{Title: "T", Content: "body text", LastModified: now})
	assert.False(t, st.Degraded)
	require.Len(t, f.stored, 1)
	assert.Equal(t, Document{Name: "Main", Title: "T", TypeTag: TypePage, DateTime: now}, f.stored[0])
	assert.False(t, s.Corrupted())
}

func TestSynchronizer_ZeroWordsMarksCorruption(t *testing.T) {
	ctx := context.Background()
	f := &fakeIndexer{count: 0}
	s := NewSynchronizer(f, NewMarkupPreparer(), logger.Nop())

	st := s.IndexPage(ctx, &data.PageInfo{FullName: "Main"}, &data.PageContent{Content: "some words"})
	assert.True(t, st.Degraded)
	assert.ErrorIs(t, st.Err, ErrNoWordsIndexed)
	assert.True(t, s.Corrupted())

	s.ResetCorrupted()
	assert.False(t, s.Corrupted())

	// Empty text legitimately indexes nothing.
	st = s.IndexPage(ctx, &data.PageInfo{FullName: "Empty"}, &data.PageContent{Content: "   "})
	assert.False(t, st.Degraded)
	assert.False(t, s.Corrupted())
}

func TestSynchronizer_EngineFailureIsDegradedNotFatal(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	f := &fakeIndexer{storeErr: boom, rmErr: boom}
	s := NewSynchronizer(f, NewMarkupPreparer(), logger.Nop())
	page := &data.PageInfo{FullName: "Main"}

	st := s.IndexPage(ctx, page, &data.PageContent{Content: "x y"})
	assert.True(t, st.Degraded)
	assert.ErrorIs(t, st.Err, boom)

	st = s.UnindexPage(ctx, page)
	assert.True(t, st.Degraded)
}

func TestSynchronizer_MessageTrees(t *testing.T) {
	ctx := context.Background()
	f := &fakeIndexer{count: 1}
	s := NewSynchronizer(f, NewMarkupPreparer(), logger.Nop())
	page := &data.PageInfo{FullName: "Main"}

	tree := []*data.Message{
		{ID: 0, Subject: "Hello", Body: "first", Replies: []*data.Message{
			{ID: 1, Subject: "RE: Hello", Body: "second"},
		}},
		{ID: 2, Subject: "Other", Body: "third"},
	}

	st := s.IndexMessageTree(ctx, page, tree)
	assert.False(t, st.Degraded)
	require.Len(t, f.stored, 3)
	assert.Equal(t, "Main...1", f.stored[1].Name)
	assert.Equal(t, "Hello", f.stored[1].Title)
	assert.Equal(t, TypeMessage, f.stored[1].TypeTag)

	s.UnindexMessageTree(ctx, page, tree)
	assert.Equal(t, []string{"Main...0", "Main...1", "Main...2"}, f.removed)
}
