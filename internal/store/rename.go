package store

import (
	"context"
	"fmt"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// movePageRow replaces the metadata row of a page under a new full name in a
// single partition batch. The page id is kept.
func (s *Store) movePageRow(ctx context.Context, from, to *data.PageInfo) error {
	err := s.execute(ctx, data.TablePagesInfo, []table.Operation{
		table.Upsert(data.PageEntity(s.wiki, to)),
		table.Delete(s.wiki, from.FullName),
	})
	s.cache.InvalidatePage(from.FullName)
	s.cache.InvalidatePage(to.FullName)
	return err
}

// resolveMove checks a rename or move of page to newFullName. It returns the
// page to move and whether the metadata row already moved in an earlier,
// interrupted call.
func (s *Store) resolveMove(ctx context.Context, page *data.PageInfo, newFullName string) (*data.PageInfo, bool, error) {
	if err := validatePage(page); err != nil {
		return nil, false, err
	}
	stored, err := s.GetPage(ctx, page.FullName)
	if err != nil {
		return nil, false, err
	}
	target, err := s.GetPage(ctx, newFullName)
	if err != nil {
		return nil, false, err
	}

	if stored == nil {
		if target != nil && page.PageID != "" && target.PageID == page.PageID {
			s.log.Warn(fmt.Sprintf("Resuming move of page %s to %s", page.FullName, newFullName))
			return &data.PageInfo{FullName: page.FullName, PageID: target.PageID, CreationTime: target.CreationTime}, true, nil
		}
		return nil, false, notFound("page", page.FullName)
	}
	if page.PageID != "" && stored.PageID != page.PageID {
		return nil, false, notFound("page", page.FullName)
	}
	if target != nil {
		return nil, false, conflict("page %q already exists", newFullName)
	}
	isDefault, err := s.isDefaultPage(ctx, stored)
	if err != nil {
		return nil, false, err
	}
	if isDefault {
		return nil, false, conflict("page %q is the default page of its namespace", stored.FullName)
	}
	return stored, false, nil
}

// RenamePage gives a page a new local name within its namespace. Revisions
// and messages stay under the page id; category and navigation path entries
// and the search index follow the new name.
//
// Repeating a call that failed after the metadata row moved resumes it.
func (s *Store) RenamePage(ctx context.Context, page *data.PageInfo, newName string) (*data.PageInfo, IndexStatus, error) {
	var status IndexStatus
	if err := validateLocalName("page", newName); err != nil {
		return nil, status, err
	}
	if err := validatePage(page); err != nil {
		return nil, status, err
	}
	newFullName := data.FullName(page.Namespace(), newName)
	if newFullName == page.FullName {
		return nil, status, conflict("page %q already exists", newFullName)
	}
	old, resumed, err := s.resolveMove(ctx, page, newFullName)
	if err != nil {
		return nil, status, err
	}
	renamed := &data.PageInfo{FullName: newFullName, PageID: old.PageID, CreationTime: old.CreationTime}

	steps := []step{
		{"metadata", func(ctx context.Context) error {
			if resumed {
				return nil
			}
			return s.movePageRow(ctx, old, renamed)
		}},
		{"categories", func(ctx context.Context) error {
			return s.replaceInCategories(ctx, old.FullName, renamed.FullName)
		}},
		{"navigation", func(ctx context.Context) error {
			return s.replaceInNavigationPaths(ctx, old.FullName, renamed.FullName)
		}},
		{"index", func(ctx context.Context) error {
			st, err := s.reindexRenamed(ctx, old, renamed)
			status = status.Merge(st)
			return err
		}},
	}
	if err := s.runSteps(ctx, "rename page", steps); err != nil {
		return nil, status, err
	}
	s.log.Info(fmt.Sprintf("Renamed page %s to %s", old.FullName, renamed.FullName))
	return renamed, status, nil
}

// MovePage moves a page to another namespace. The page leaves every category
// it was bound to; with copyCategories it is bound to the categories of the
// same local names in the destination, which are created if needed.
func (s *Store) MovePage(ctx context.Context, page *data.PageInfo, destination string, copyCategories bool) (*data.PageInfo, IndexStatus, error) {
	var status IndexStatus
	if err := validatePage(page); err != nil {
		return nil, status, err
	}
	ns, err := s.GetNamespace(ctx, destination)
	if err != nil {
		return nil, status, err
	}
	if ns == nil {
		return nil, status, notFound("namespace", destination)
	}
	newFullName := renameInNamespace(page.FullName, destination)
	if newFullName == page.FullName {
		return nil, status, conflict("page %q already exists", newFullName)
	}
	old, resumed, err := s.resolveMove(ctx, page, newFullName)
	if err != nil {
		return nil, status, err
	}
	moved := &data.PageInfo{FullName: newFullName, PageID: old.PageID, CreationTime: old.CreationTime}

	steps := []step{
		{"metadata", func(ctx context.Context) error {
			if resumed {
				return nil
			}
			return s.movePageRow(ctx, old, moved)
		}},
		{"categories", func(ctx context.Context) error {
			return s.moveCategoryBindings(ctx, old.FullName, moved.FullName, copyCategories)
		}},
		{"navigation", func(ctx context.Context) error {
			return s.replaceInNavigationPaths(ctx, old.FullName, moved.FullName)
		}},
		{"index", func(ctx context.Context) error {
			st, err := s.reindexRenamed(ctx, old, moved)
			status = status.Merge(st)
			return err
		}},
	}
	if err := s.runSteps(ctx, "move page", steps); err != nil {
		return nil, status, err
	}
	s.log.Info(fmt.Sprintf("Moved page %s to %s", old.FullName, moved.FullName))
	return moved, status, nil
}

// reindexRenamed drops the documents of a page and its messages under the old
// name and indexes them under the new one.
func (s *Store) reindexRenamed(ctx context.Context, old, renamed *data.PageInfo) (IndexStatus, error) {
	var status IndexStatus
	content, err := s.revision(ctx, renamed.PageID, data.RevisionCurrent)
	if err != nil {
		return status, err
	}
	messages, err := s.messageTree(ctx, renamed.PageID)
	if err != nil {
		return status, err
	}

	status = status.Merge(s.sync.UnindexPage(ctx, old))
	status = status.Merge(s.sync.UnindexMessageTree(ctx, old, messages))
	if content != nil {
		status = status.Merge(s.sync.IndexPage(ctx, renamed, content))
	}
	status = status.Merge(s.sync.IndexMessageTree(ctx, renamed, messages))
	return status, nil
}

// RemovePage removes a page with its revisions, messages, category and
// navigation path entries, and search documents. A namespace default page
// cannot be removed.
func (s *Store) RemovePage(ctx context.Context, page *data.PageInfo) (IndexStatus, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return IndexStatus{}, err
	}
	isDefault, err := s.isDefaultPage(ctx, page)
	if err != nil {
		return IndexStatus{}, err
	}
	if isDefault {
		return IndexStatus{}, conflict("page %q is the default page of its namespace", page.FullName)
	}
	return s.removePage(ctx, page)
}

func (s *Store) removePage(ctx context.Context, page *data.PageInfo) (IndexStatus, error) {
	var status IndexStatus
	steps := []step{
		{"index", func(ctx context.Context) error {
			messages, err := s.messageTree(ctx, page.PageID)
			if err != nil {
				return err
			}
			status = status.Merge(s.sync.UnindexPage(ctx, page))
			status = status.Merge(s.sync.UnindexMessageTree(ctx, page, messages))
			return nil
		}},
		{"categories", func(ctx context.Context) error {
			return s.replaceInCategories(ctx, page.FullName, "")
		}},
		{"navigation", func(ctx context.Context) error {
			return s.replaceInNavigationPaths(ctx, page.FullName, "")
		}},
		{"messages", func(ctx context.Context) error {
			return s.deletePartition(ctx, data.TableMessages, page.PageID)
		}},
		{"revisions", func(ctx context.Context) error {
			err := s.deletePartition(ctx, data.TablePagesContents, page.PageID)
			s.cache.InvalidatePageContents(page.PageID)
			return err
		}},
		{"metadata", func(ctx context.Context) error {
			err := s.execute(ctx, data.TablePagesInfo, []table.Operation{table.Delete(s.wiki, page.FullName)})
			s.cache.InvalidatePage(page.FullName)
			return err
		}},
	}
	if err := s.runSteps(ctx, "remove page", steps); err != nil {
		return status, err
	}
	s.log.Info(fmt.Sprintf("Removed page %s", page.FullName))
	return status, nil
}

func (s *Store) deletePartition(ctx context.Context, tableName, partitionKey string) error {
	rows, err := s.query(ctx, tableName, table.Query{PartitionKey: partitionKey})
	if err != nil {
		return err
	}
	ops := make([]table.Operation, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, table.Delete(row.PartitionKey, row.RowKey))
	}
	return s.execute(ctx, tableName, ops)
}

// replaceInCategories rewrites oldName to newName in every category page
// list. An empty newName removes the entry.
func (s *Store) replaceInCategories(ctx context.Context, oldName, newName string) error {
	rows, err := s.query(ctx, data.TableCategories, table.Query{})
	if err != nil {
		return err
	}
	var ops []table.Operation
	for _, row := range rows {
		cat := data.CategoryFromEntity(row)
		if !cat.Pages.Contains(oldName) {
			continue
		}
		if newName == "" {
			cat.Pages = cat.Pages.Remove(oldName)
		} else {
			cat.Pages, _ = cat.Pages.Replace(oldName, newName)
			cat.Pages = cat.Pages.Dedup()
		}
		ops = append(ops, table.Upsert(data.CategoryEntity(s.wiki, cat)))
	}
	return s.execute(ctx, data.TableCategories, ops)
}

// replaceInNavigationPaths rewrites oldName to newName in every navigation
// path, keeping order. An empty newName removes the entry.
func (s *Store) replaceInNavigationPaths(ctx context.Context, oldName, newName string) error {
	rows, err := s.query(ctx, data.TableNavigationPaths, table.Query{})
	if err != nil {
		return err
	}
	var ops []table.Operation
	for _, row := range rows {
		path := data.NavigationPathFromEntity(row)
		if !path.Pages.Contains(oldName) {
			continue
		}
		if newName == "" {
			path.Pages = path.Pages.Remove(oldName)
		} else {
			path.Pages, _ = path.Pages.Replace(oldName, newName)
		}
		ops = append(ops, table.Upsert(data.NavigationPathEntity(s.wiki, path)))
	}
	return s.execute(ctx, data.TableNavigationPaths, ops)
}

// moveCategoryBindings unbinds a moved page from the categories of its old
// namespace and, with copyCategories, binds it to same-named categories of
// the new namespace.
func (s *Store) moveCategoryBindings(ctx context.Context, oldName, newName string, copyCategories bool) error {
	rows, err := s.query(ctx, data.TableCategories, table.Query{})
	if err != nil {
		return err
	}
	destNs, _ := data.SplitFullName(newName)
	existing := make(map[string]*data.CategoryInfo, len(rows))
	for _, row := range rows {
		cat := data.CategoryFromEntity(row)
		existing[cat.FullName] = cat
	}

	changed := make(map[string]*data.CategoryInfo)
	var order []string
	touch := func(cat *data.CategoryInfo) {
		if _, ok := changed[cat.FullName]; !ok {
			order = append(order, cat.FullName)
		}
		changed[cat.FullName] = cat
	}
	for _, row := range rows {
		cat := existing[row.RowKey]
		if !cat.Pages.Contains(oldName) {
			continue
		}
		cat.Pages = cat.Pages.Remove(oldName)
		touch(cat)
		if !copyCategories {
			continue
		}
		destName := renameInNamespace(cat.FullName, destNs)
		dest, ok := existing[destName]
		if !ok {
			dest = &data.CategoryInfo{FullName: destName}
			existing[destName] = dest
		}
		dest.Pages = dest.Pages.Add(newName)
		touch(dest)
	}

	ops := make([]table.Operation, 0, len(order))
	for _, name := range order {
		ops = append(ops, table.Upsert(data.CategoryEntity(s.wiki, changed[name])))
	}
	return s.execute(ctx, data.TableCategories, ops)
}
