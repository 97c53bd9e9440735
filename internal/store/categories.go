package store

import (
	"context"
	"fmt"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// GetCategory returns a category by full name, or nil if it does not exist.
func (s *Store) GetCategory(ctx context.Context, fullName string) (*data.CategoryInfo, error) {
	e, err := s.get(ctx, data.TableCategories, s.wiki, fullName)
	if err != nil || e == nil {
		return nil, err
	}
	return data.CategoryFromEntity(e), nil
}

// GetCategories returns the categories of a namespace sorted by full name.
func (s *Store) GetCategories(ctx context.Context, namespace string) ([]*data.CategoryInfo, error) {
	rows, err := s.query(ctx, data.TableCategories, table.Query{Filter: inNamespace(namespace)})
	if err != nil {
		return nil, err
	}
	out := make([]*data.CategoryInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.CategoryFromEntity(row))
	}
	return out, nil
}

// GetCategoriesForPage returns the categories a page is bound to.
func (s *Store) GetCategoriesForPage(ctx context.Context, page *data.PageInfo) ([]*data.CategoryInfo, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, data.TableCategories, table.Query{Filter: func(e *table.Entity) bool {
		return data.CategoryFromEntity(e).Pages.Contains(page.FullName)
	}})
	if err != nil {
		return nil, err
	}
	out := make([]*data.CategoryInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.CategoryFromEntity(row))
	}
	return out, nil
}

// AddCategory creates an empty category in a namespace.
func (s *Store) AddCategory(ctx context.Context, namespace, name string) (*data.CategoryInfo, error) {
	if err := validateLocalName("category", name); err != nil {
		return nil, err
	}
	ns, err := s.GetNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, notFound("namespace", namespace)
	}
	fullName := data.FullName(namespace, name)
	existing, err := s.GetCategory(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("category %q already exists", fullName)
	}
	cat := &data.CategoryInfo{FullName: fullName}
	if err := s.execute(ctx, data.TableCategories, []table.Operation{table.Upsert(data.CategoryEntity(s.wiki, cat))}); err != nil {
		return nil, err
	}
	return cat, nil
}

// RenameCategory renames a category within its namespace.
func (s *Store) RenameCategory(ctx context.Context, fullName, newName string) (*data.CategoryInfo, error) {
	if err := validateLocalName("category", newName); err != nil {
		return nil, err
	}
	cat, err := s.GetCategory(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, notFound("category", fullName)
	}
	newFullName := data.FullName(cat.Namespace(), newName)
	existing, err := s.GetCategory(ctx, newFullName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("category %q already exists", newFullName)
	}
	renamed := &data.CategoryInfo{FullName: newFullName, Pages: cat.Pages}
	if err := s.execute(ctx, data.TableCategories, []table.Operation{
		table.Upsert(data.CategoryEntity(s.wiki, renamed)),
		table.Delete(s.wiki, fullName),
	}); err != nil {
		return nil, err
	}
	return renamed, nil
}

// RemoveCategory removes a category. Bound pages are not affected.
func (s *Store) RemoveCategory(ctx context.Context, fullName string) error {
	cat, err := s.GetCategory(ctx, fullName)
	if err != nil {
		return err
	}
	if cat == nil {
		return notFound("category", fullName)
	}
	return s.execute(ctx, data.TableCategories, []table.Operation{table.Delete(s.wiki, fullName)})
}

// MergeCategories binds every page of source to destination and removes
// source. Both must be in the same namespace.
func (s *Store) MergeCategories(ctx context.Context, source, destination string) (*data.CategoryInfo, error) {
	if source == destination {
		return nil, invalid("cannot merge category %q into itself", source)
	}
	src, err := s.GetCategory(ctx, source)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, notFound("category", source)
	}
	dst, err := s.GetCategory(ctx, destination)
	if err != nil {
		return nil, err
	}
	if dst == nil {
		return nil, notFound("category", destination)
	}
	if src.Namespace() != dst.Namespace() {
		return nil, invalid("categories %q and %q are in different namespaces", source, destination)
	}
	for _, p := range src.Pages {
		dst.Pages = dst.Pages.Add(p)
	}
	if err := s.execute(ctx, data.TableCategories, []table.Operation{
		table.Upsert(data.CategoryEntity(s.wiki, dst)),
		table.Delete(s.wiki, source),
	}); err != nil {
		return nil, err
	}
	return dst, nil
}

// RebindPage makes categories the exact set of categories page is bound to.
// Every category must exist in the page's namespace; this is checked before
// anything is written.
func (s *Store) RebindPage(ctx context.Context, page *data.PageInfo, categories []string) error {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return err
	}
	rows, err := s.query(ctx, data.TableCategories, table.Query{})
	if err != nil {
		return err
	}
	all := make(map[string]*data.CategoryInfo, len(rows))
	for _, row := range rows {
		cat := data.CategoryFromEntity(row)
		all[cat.FullName] = cat
	}

	wanted := make(map[string]bool, len(categories))
	for _, name := range categories {
		cat, ok := all[name]
		if !ok {
			return notFound("category", name)
		}
		if cat.Namespace() != page.Namespace() {
			return invalid("category %q is not in the namespace of page %q", name, page.FullName)
		}
		wanted[name] = true
	}

	var ops []table.Operation
	for _, row := range rows {
		cat := all[row.RowKey]
		bound := cat.Pages.Contains(page.FullName)
		switch {
		case wanted[cat.FullName] && !bound:
			cat.Pages = cat.Pages.Add(page.FullName)
		case !wanted[cat.FullName] && bound:
			cat.Pages = cat.Pages.Remove(page.FullName)
		default:
			continue
		}
		ops = append(ops, table.Upsert(data.CategoryEntity(s.wiki, cat)))
	}
	if err := s.execute(ctx, data.TableCategories, ops); err != nil {
		return err
	}
	s.log.Debug(fmt.Sprintf("Rebound page %s to %d categories", page.FullName, len(wanted)))
	return nil
}
