package search

import (
	"bytes"
	"html"
	"strings"

	"go-wiki-store/internal/data"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Preparer turns stored markup into the plain text that gets indexed.
// Implementations must be pure functions of their input.
type Preparer interface {
	PrepareContent(page *data.PageInfo, raw string) string
	PrepareTitle(page *data.PageInfo, title string) string
}

// MarkupPreparer renders Markdown to HTML and strips every tag, leaving text.
type MarkupPreparer struct {
	markdown goldmark.Markdown
	strip    *bluemonday.Policy
}

var _ Preparer = (*MarkupPreparer)(nil)

// NewMarkupPreparer creates a MarkupPreparer.
func NewMarkupPreparer() *MarkupPreparer {
	return &MarkupPreparer{
		markdown: goldmark.New(),
		// StrictPolicy removes all elements and keeps their text.
		strip: bluemonday.StrictPolicy(),
	}
}

// PrepareContent converts page markup to plain text.
func (p *MarkupPreparer) PrepareContent(page *data.PageInfo, raw string) string {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(raw), &buf); err != nil {
		// Unparseable markup is indexed as-is, minus any HTML.
		return p.text(raw)
	}
	return p.text(buf.String())
}

// PrepareTitle strips markup from a title.
func (p *MarkupPreparer) PrepareTitle(page *data.PageInfo, title string) string {
	return strings.TrimSpace(p.text(title))
}

func (p *MarkupPreparer) text(s string) string {
	return html.UnescapeString(p.strip.Sanitize(s))
}
