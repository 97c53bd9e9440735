package store

import (
	"context"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// blobs handles a table of named text blobs keyed by (wiki, name).
type blobs struct {
	s      *Store
	table  string
	kind   string
	encode func(wiki, name, content string) *table.Entity
}

func (b blobs) get(ctx context.Context, name string) (*table.Entity, error) {
	return b.s.get(ctx, b.table, b.s.wiki, name)
}

func (b blobs) list(ctx context.Context) ([]*table.Entity, error) {
	return b.s.query(ctx, b.table, table.Query{})
}

func (b blobs) add(ctx context.Context, name, content string) error {
	if err := validateName(b.kind, name); err != nil {
		return err
	}
	existing, err := b.get(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return conflict("%s %q already exists", b.kind, name)
	}
	return b.s.execute(ctx, b.table, []table.Operation{table.Upsert(b.encode(b.s.wiki, name, content))})
}

func (b blobs) modify(ctx context.Context, name, content string) error {
	existing, err := b.get(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound(b.kind, name)
	}
	return b.s.execute(ctx, b.table, []table.Operation{table.Upsert(b.encode(b.s.wiki, name, content))})
}

func (b blobs) remove(ctx context.Context, name string) error {
	existing, err := b.get(ctx, name)
	if err != nil {
		return err
	}
	if existing == nil {
		return notFound(b.kind, name)
	}
	return b.s.execute(ctx, b.table, []table.Operation{table.Delete(b.s.wiki, name)})
}

func (s *Store) snippets() blobs {
	return blobs{s: s, table: data.TableSnippets, kind: "snippet", encode: func(wiki, name, content string) *table.Entity {
		return data.SnippetEntity(wiki, &data.Snippet{Name: name, Content: content})
	}}
}

func (s *Store) templates() blobs {
	return blobs{s: s, table: data.TableContentTemplates, kind: "content template", encode: func(wiki, name, content string) *table.Entity {
		return data.ContentTemplateEntity(wiki, &data.ContentTemplate{Name: name, Content: content})
	}}
}

// GetSnippet returns a snippet, or nil if it does not exist.
func (s *Store) GetSnippet(ctx context.Context, name string) (*data.Snippet, error) {
	e, err := s.snippets().get(ctx, name)
	if err != nil || e == nil {
		return nil, err
	}
	return data.SnippetFromEntity(e), nil
}

// GetSnippets returns every snippet sorted by name.
func (s *Store) GetSnippets(ctx context.Context) ([]*data.Snippet, error) {
	rows, err := s.snippets().list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*data.Snippet, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.SnippetFromEntity(row))
	}
	return out, nil
}

func (s *Store) AddSnippet(ctx context.Context, name, content string) (*data.Snippet, error) {
	if err := s.snippets().add(ctx, name, content); err != nil {
		return nil, err
	}
	return &data.Snippet{Name: name, Content: content}, nil
}

func (s *Store) ModifySnippet(ctx context.Context, name, content string) (*data.Snippet, error) {
	if err := s.snippets().modify(ctx, name, content); err != nil {
		return nil, err
	}
	return &data.Snippet{Name: name, Content: content}, nil
}

func (s *Store) RemoveSnippet(ctx context.Context, name string) error {
	return s.snippets().remove(ctx, name)
}

// GetContentTemplate returns a content template, or nil if it does not exist.
func (s *Store) GetContentTemplate(ctx context.Context, name string) (*data.ContentTemplate, error) {
	e, err := s.templates().get(ctx, name)
	if err != nil || e == nil {
		return nil, err
	}
	return data.ContentTemplateFromEntity(e), nil
}

// GetContentTemplates returns every content template sorted by name.
func (s *Store) GetContentTemplates(ctx context.Context) ([]*data.ContentTemplate, error) {
	rows, err := s.templates().list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*data.ContentTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.ContentTemplateFromEntity(row))
	}
	return out, nil
}

func (s *Store) AddContentTemplate(ctx context.Context, name, content string) (*data.ContentTemplate, error) {
	if err := s.templates().add(ctx, name, content); err != nil {
		return nil, err
	}
	return &data.ContentTemplate{Name: name, Content: content}, nil
}

func (s *Store) ModifyContentTemplate(ctx context.Context, name, content string) (*data.ContentTemplate, error) {
	if err := s.templates().modify(ctx, name, content); err != nil {
		return nil, err
	}
	return &data.ContentTemplate{Name: name, Content: content}, nil
}

func (s *Store) RemoveContentTemplate(ctx context.Context, name string) error {
	return s.templates().remove(ctx, name)
}
