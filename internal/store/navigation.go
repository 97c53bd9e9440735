package store

import (
	"context"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// GetNavigationPath returns a navigation path, or nil if it does not exist.
func (s *Store) GetNavigationPath(ctx context.Context, fullName string) (*data.NavigationPath, error) {
	e, err := s.get(ctx, data.TableNavigationPaths, s.wiki, fullName)
	if err != nil || e == nil {
		return nil, err
	}
	return data.NavigationPathFromEntity(e), nil
}

// GetNavigationPaths returns the navigation paths of a namespace.
func (s *Store) GetNavigationPaths(ctx context.Context, namespace string) ([]*data.NavigationPath, error) {
	rows, err := s.query(ctx, data.TableNavigationPaths, table.Query{Filter: inNamespace(namespace)})
	if err != nil {
		return nil, err
	}
	out := make([]*data.NavigationPath, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.NavigationPathFromEntity(row))
	}
	return out, nil
}

// checkPages fails with ErrNotFound unless every named page exists.
func (s *Store) checkPages(ctx context.Context, pages []string) error {
	for _, name := range pages {
		p, err := s.GetPage(ctx, name)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("page", name)
		}
	}
	return nil
}

// AddNavigationPath creates a navigation path over existing pages.
func (s *Store) AddNavigationPath(ctx context.Context, namespace, name string, pages []string) (*data.NavigationPath, error) {
	if err := validateLocalName("navigation path", name); err != nil {
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
	existing, err := s.GetNavigationPath(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("navigation path %q already exists", fullName)
	}
	if err := s.checkPages(ctx, pages); err != nil {
		return nil, err
	}
	path := &data.NavigationPath{FullName: fullName, Pages: data.NameList(pages)}
	if err := s.execute(ctx, data.TableNavigationPaths, []table.Operation{table.Upsert(data.NavigationPathEntity(s.wiki, path))}); err != nil {
		return nil, err
	}
	return path, nil
}

// ModifyNavigationPath replaces the page sequence of a navigation path.
func (s *Store) ModifyNavigationPath(ctx context.Context, fullName string, pages []string) (*data.NavigationPath, error) {
	path, err := s.GetNavigationPath(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return nil, notFound("navigation path", fullName)
	}
	if err := s.checkPages(ctx, pages); err != nil {
		return nil, err
	}
	path.Pages = data.NameList(pages)
	if err := s.execute(ctx, data.TableNavigationPaths, []table.Operation{table.Upsert(data.NavigationPathEntity(s.wiki, path))}); err != nil {
		return nil, err
	}
	return path, nil
}

// RemoveNavigationPath removes a navigation path.
func (s *Store) RemoveNavigationPath(ctx context.Context, fullName string) error {
	path, err := s.GetNavigationPath(ctx, fullName)
	if err != nil {
		return err
	}
	if path == nil {
		return notFound("navigation path", fullName)
	}
	return s.execute(ctx, data.TableNavigationPaths, []table.Operation{table.Delete(s.wiki, fullName)})
}
