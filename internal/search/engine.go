package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"go-wiki-store/internal/data"
)

// Document type tags.
const (
	TypePage    = "P"
	TypeMessage = "M"
)

// Document is an indexable unit.
type Document struct {
	Name     string
	Title    string
	TypeTag  string
	DateTime time.Time
}

// Result is a document matching every word of a query.
type Result struct {
	Document  Document
	Relevance int
	Matches   []Occurrence
}

// Stats describes the size of the index.
type Stats struct {
	Documents   int `json:"documents"`
	Words       int `json:"words"`
	Occurrences int `json:"occurrences"`
}

var locationWeight = map[data.WordLocation]int{
	data.LocationTitle:    4,
	data.LocationKeywords: 3,
	data.LocationContent:  1,
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "her": true, "was": true,
	"one": true, "our": true, "out": true, "his": true, "has": true, "its": true,
	"of": true, "to": true, "in": true, "is": true, "it": true, "on": true,
	"at": true, "by": true, "be": true, "as": true, "or": true, "an": true,
	"if": true, "so": true, "do": true, "no": true, "we": true, "he": true,
	"this": true, "that": true, "with": true, "from": true,
}

// token is a word and its rune offset in the source text.
type token struct {
	word  string
	start int
}

// tokenize splits text into lowercase letter/digit runs, dropping stop words
// and single characters.
func tokenize(text string) []token {
	var tokens []token
	var b strings.Builder
	start, pos := -1, 0
	flush := func() {
		if start < 0 {
			return
		}
		w := b.String()
		if len([]rune(w)) > 1 && !stopWords[w] {
			tokens = append(tokens, token{word: w, start: start})
		}
		b.Reset()
		start = -1
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = pos
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
		pos++
	}
	flush()
	return tokens
}

// Engine is a small inverted-index engine over a Backend. Ranking is a
// weighted occurrence count.
type Engine struct {
	backend Backend
}

// NewEngine creates an Engine.
func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// StoreDocument replaces the indexed words of doc and returns how many were stored.
func (e *Engine) StoreDocument(ctx context.Context, doc Document, keywords []string, body string) (int, error) {
	if err := e.backend.DeleteDocument(ctx, doc.Name); err != nil {
		return 0, err
	}

	var words []Occurrence
	add := func(loc data.WordLocation, text string) {
		for i, tok := range tokenize(text) {
			words = append(words, Occurrence{Word: tok.word, Location: loc, WordIndex: i, FirstCharIndex: tok.start})
		}
	}
	add(data.LocationTitle, doc.Title)
	add(data.LocationKeywords, strings.Join(keywords, " "))
	add(data.LocationContent, body)

	if err := e.backend.StoreWords(ctx, doc, words); err != nil {
		return 0, err
	}
	return len(words), nil
}

// RemoveDocument removes every indexed word of doc.
func (e *Engine) RemoveDocument(ctx context.Context, doc Document) error {
	return e.backend.DeleteDocument(ctx, doc.Name)
}

// Clear empties the index.
func (e *Engine) Clear(ctx context.Context) error {
	return e.backend.Clear(ctx)
}

// Search returns the documents containing every word of query, most relevant first.
func (e *Engine) Search(ctx context.Context, query string) ([]Result, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var results map[string]*Result
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if seen[tok.word] {
			continue
		}
		seen[tok.word] = true

		matches, err := e.backend.FindWord(ctx, tok.word)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		if matches == nil {
			return nil, nil
		}
		next := make(map[string]*Result, len(matches))
		for name, m := range matches {
			if results != nil && results[name] == nil {
				continue
			}
			r := results[name]
			if r == nil {
				r = &Result{Document: m.Document}
			}
			for _, occ := range m.Occurrences {
				r.Relevance += locationWeight[occ.Location]
				r.Matches = append(r.Matches, occ)
			}
			next[name] = r
		}
		results = next
		if len(results) == 0 {
			return nil, nil
		}
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Document.Name < out[j].Document.Name
	})
	return out, nil
}

// Stats counts documents, distinct words and occurrences.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Documents, err = e.backend.Count(ctx, CountDocuments); err != nil {
		return Stats{}, err
	}
	if st.Words, err = e.backend.Count(ctx, CountWords); err != nil {
		return Stats{}, err
	}
	if st.Occurrences, err = e.backend.Count(ctx, CountOccurrences); err != nil {
		return Stats{}, err
	}
	return st, nil
}
