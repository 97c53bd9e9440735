package store

import (
	"context"
	"fmt"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// GetNamespace returns a namespace, or nil if it does not exist. The root
// namespace always exists; its row, keyed by the empty name, is only written
// once a default page is set.
func (s *Store) GetNamespace(ctx context.Context, name string) (*data.NamespaceInfo, error) {
	e, err := s.get(ctx, data.TableNamespaces, s.wiki, name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		if name == "" {
			return &data.NamespaceInfo{}, nil
		}
		return nil, nil
	}
	return data.NamespaceFromEntity(e), nil
}

// GetNamespaces returns every named namespace sorted by name. The root
// namespace is not included.
func (s *Store) GetNamespaces(ctx context.Context) ([]*data.NamespaceInfo, error) {
	rows, err := s.query(ctx, data.TableNamespaces, table.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]*data.NamespaceInfo, 0, len(rows))
	for _, row := range rows {
		if row.RowKey == "" {
			continue
		}
		out = append(out, data.NamespaceFromEntity(row))
	}
	return out, nil
}

// AddNamespace creates an empty namespace.
func (s *Store) AddNamespace(ctx context.Context, name string) (*data.NamespaceInfo, error) {
	if err := validateLocalName("namespace", name); err != nil {
		return nil, err
	}
	existing, err := s.GetNamespace(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("namespace %q already exists", name)
	}
	ns := &data.NamespaceInfo{Name: name}
	if err := s.execute(ctx, data.TableNamespaces, []table.Operation{table.Upsert(data.NamespaceEntity(s.wiki, ns))}); err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Added namespace %s", name))
	return ns, nil
}

// SetNamespaceDefaultPage sets the default page of a namespace, including the
// root namespace "". An empty page name clears it.
func (s *Store) SetNamespaceDefaultPage(ctx context.Context, name, pageFullName string) (*data.NamespaceInfo, error) {
	ns, err := s.GetNamespace(ctx, name)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		return nil, notFound("namespace", name)
	}
	if pageFullName != "" {
		page, err := s.GetPage(ctx, pageFullName)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, notFound("page", pageFullName)
		}
		if page.Namespace() != name {
			return nil, invalid("page %q is not in namespace %q", pageFullName, name)
		}
	}
	ns.DefaultPage = pageFullName
	if err := s.execute(ctx, data.TableNamespaces, []table.Operation{table.Upsert(data.NamespaceEntity(s.wiki, ns))}); err != nil {
		return nil, err
	}
	return ns, nil
}

// isDefaultPage reports whether page is the default page of its namespace.
func (s *Store) isDefaultPage(ctx context.Context, page *data.PageInfo) (bool, error) {
	ns, err := s.GetNamespace(ctx, page.Namespace())
	if err != nil || ns == nil {
		return false, err
	}
	return ns.DefaultPage == page.FullName, nil
}

// RenameNamespace renames a namespace and every page, category and
// navigation path qualified by it. Page ids do not change.
//
// The namespace row moves first, so a call that failed partway can be
// repeated: when the old namespace is gone and the new one exists, the
// remaining steps run again.
func (s *Store) RenameNamespace(ctx context.Context, name, newName string) (*data.NamespaceInfo, IndexStatus, error) {
	var status IndexStatus
	if name == "" {
		return nil, status, invalid("the root namespace cannot be renamed")
	}
	if err := validateLocalName("namespace", newName); err != nil {
		return nil, status, err
	}
	if name == newName {
		return nil, status, conflict("namespace %q already exists", newName)
	}

	src, err := s.GetNamespace(ctx, name)
	if err != nil {
		return nil, status, err
	}
	dst, err := s.GetNamespace(ctx, newName)
	if err != nil {
		return nil, status, err
	}
	switch {
	case src == nil && dst == nil:
		return nil, status, notFound("namespace", name)
	case src != nil && dst != nil:
		return nil, status, conflict("namespace %q already exists", newName)
	case src == nil:
		s.log.Warn(fmt.Sprintf("Resuming rename of namespace %s to %s", name, newName))
	}

	steps := []step{
		{"namespace", func(ctx context.Context) error {
			if src == nil {
				return nil
			}
			moved := &data.NamespaceInfo{Name: newName}
			if src.DefaultPage != "" {
				moved.DefaultPage = renameInNamespace(src.DefaultPage, newName)
			}
			dst = moved
			return s.execute(ctx, data.TableNamespaces, []table.Operation{
				table.Upsert(data.NamespaceEntity(s.wiki, moved)),
				table.Delete(s.wiki, name),
			})
		}},
		{"pages", func(ctx context.Context) error {
			return s.renameNamespacePages(ctx, name, newName)
		}},
		{"categories", func(ctx context.Context) error {
			return s.renameNamespaceCategories(ctx, name, newName)
		}},
		{"navigation", func(ctx context.Context) error {
			return s.renameNamespaceNavigation(ctx, name, newName)
		}},
		{"index", func(ctx context.Context) error {
			pages, err := s.GetPages(ctx, newName)
			if err != nil {
				return err
			}
			for _, page := range pages {
				old := &data.PageInfo{FullName: renameInNamespace(page.FullName, name), PageID: page.PageID}
				st, err := s.reindexRenamed(ctx, old, page)
				if err != nil {
					return err
				}
				status = status.Merge(st)
			}
			return nil
		}},
	}
	if err := s.runSteps(ctx, "rename namespace", steps); err != nil {
		return nil, status, err
	}
	s.log.Info(fmt.Sprintf("Renamed namespace %s to %s", name, newName))
	return dst, status, nil
}

func (s *Store) renameNamespacePages(ctx context.Context, name, newName string) error {
	pages, err := s.GetPages(ctx, name)
	if err != nil {
		return err
	}
	for _, page := range pages {
		moved := *page
		moved.FullName = renameInNamespace(page.FullName, newName)
		if err := s.movePageRow(ctx, page, &moved); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) renameNamespaceCategories(ctx context.Context, name, newName string) error {
	rows, err := s.query(ctx, data.TableCategories, table.Query{Filter: inNamespace(name)})
	if err != nil {
		return err
	}
	for _, row := range rows {
		cat := data.CategoryFromEntity(row)
		moved := &data.CategoryInfo{FullName: renameInNamespace(cat.FullName, newName)}
		for _, p := range cat.Pages {
			if ns, _ := data.SplitFullName(p); ns == name {
				p = renameInNamespace(p, newName)
			}
			moved.Pages = moved.Pages.Add(p)
		}
		if err := s.execute(ctx, data.TableCategories, []table.Operation{
			table.Upsert(data.CategoryEntity(s.wiki, moved)),
			table.Delete(s.wiki, cat.FullName),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) renameNamespaceNavigation(ctx context.Context, name, newName string) error {
	rows, err := s.query(ctx, data.TableNavigationPaths, table.Query{})
	if err != nil {
		return err
	}
	for _, row := range rows {
		path := data.NavigationPathFromEntity(row)
		changed := false
		pages := make(data.NameList, 0, len(path.Pages))
		for _, p := range path.Pages {
			if ns, _ := data.SplitFullName(p); ns == name {
				p = renameInNamespace(p, newName)
				changed = true
			}
			pages = append(pages, p)
		}

		ops := []table.Operation{}
		if path.Namespace() == name {
			moved := &data.NavigationPath{FullName: renameInNamespace(path.FullName, newName), Pages: pages}
			ops = append(ops, table.Upsert(data.NavigationPathEntity(s.wiki, moved)), table.Delete(s.wiki, path.FullName))
		} else if changed {
			path.Pages = pages
			ops = append(ops, table.Upsert(data.NavigationPathEntity(s.wiki, path)))
		}
		if err := s.execute(ctx, data.TableNavigationPaths, ops); err != nil {
			return err
		}
	}
	return nil
}

// RemoveNamespace removes a namespace with all of its pages, categories and
// navigation paths.
func (s *Store) RemoveNamespace(ctx context.Context, name string) (IndexStatus, error) {
	var status IndexStatus
	if name == "" {
		return status, invalid("the root namespace cannot be removed")
	}
	ns, err := s.GetNamespace(ctx, name)
	if err != nil {
		return status, err
	}
	if ns == nil {
		return status, notFound("namespace", name)
	}

	steps := []step{
		{"pages", func(ctx context.Context) error {
			pages, err := s.GetPages(ctx, name)
			if err != nil {
				return err
			}
			for _, page := range pages {
				st, err := s.removePage(ctx, page)
				status = status.Merge(st)
				if err != nil {
					return err
				}
			}
			return nil
		}},
		{"categories", func(ctx context.Context) error {
			return s.deleteInNamespace(ctx, data.TableCategories, name)
		}},
		{"navigation", func(ctx context.Context) error {
			return s.deleteInNamespace(ctx, data.TableNavigationPaths, name)
		}},
		{"namespace", func(ctx context.Context) error {
			return s.execute(ctx, data.TableNamespaces, []table.Operation{table.Delete(s.wiki, name)})
		}},
	}
	if err := s.runSteps(ctx, "remove namespace", steps); err != nil {
		return status, err
	}
	s.log.Info(fmt.Sprintf("Removed namespace %s", name))
	return status, nil
}

func (s *Store) deleteInNamespace(ctx context.Context, tableName, ns string) error {
	rows, err := s.query(ctx, tableName, table.Query{Filter: inNamespace(ns)})
	if err != nil {
		return err
	}
	ops := make([]table.Operation, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, table.Delete(row.PartitionKey, row.RowKey))
	}
	return s.execute(ctx, tableName, ops)
}
