package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// GetPage returns a page by full name, or nil if it does not exist.
func (s *Store) GetPage(ctx context.Context, fullName string) (*data.PageInfo, error) {
	if p, ok := s.cache.GetPage(fullName); ok {
		return p, nil
	}
	e, err := s.get(ctx, data.TablePagesInfo, s.wiki, fullName)
	if err != nil || e == nil {
		return nil, err
	}
	page, err := data.PageFromEntity(e)
	if err != nil {
		return nil, err
	}
	s.cache.SetPage(page)
	return page, nil
}

// requirePage re-reads page and fails with ErrNotFound if it no longer
// exists under its full name with the same id.
func (s *Store) requirePage(ctx context.Context, page *data.PageInfo) (*data.PageInfo, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	stored, err := s.GetPage(ctx, page.FullName)
	if err != nil {
		return nil, err
	}
	if stored == nil || (page.PageID != "" && stored.PageID != page.PageID) {
		return nil, notFound("page", page.FullName)
	}
	return stored, nil
}

// allPages returns every page of the wiki, from the cache when it holds the
// complete set.
func (s *Store) allPages(ctx context.Context) ([]*data.PageInfo, error) {
	if pages, ok := s.cache.AllPages(); ok {
		sortPages(pages)
		return pages, nil
	}
	rows, err := s.query(ctx, data.TablePagesInfo, table.Query{})
	if err != nil {
		return nil, err
	}
	pages := make([]*data.PageInfo, 0, len(rows))
	for _, row := range rows {
		p, err := data.PageFromEntity(row)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	s.cache.SetAllPages(pages)
	return pages, nil
}

// GetPages returns the pages of a namespace sorted by full name.
func (s *Store) GetPages(ctx context.Context, namespace string) ([]*data.PageInfo, error) {
	all, err := s.allPages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*data.PageInfo, 0, len(all))
	for _, p := range all {
		if p.Namespace() == namespace {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetUncategorizedPages returns the pages of a namespace bound to no category.
func (s *Store) GetUncategorizedPages(ctx context.Context, namespace string) ([]*data.PageInfo, error) {
	pages, err := s.GetPages(ctx, namespace)
	if err != nil {
		return nil, err
	}
	cats, err := s.GetCategories(ctx, namespace)
	if err != nil {
		return nil, err
	}
	bound := make(map[string]bool)
	for _, c := range cats {
		for _, p := range c.Pages {
			bound[p] = true
		}
	}
	out := make([]*data.PageInfo, 0, len(pages))
	for _, p := range pages {
		if !bound[p.FullName] {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddPage creates a page with a fresh id and no revisions.
func (s *Store) AddPage(ctx context.Context, namespace, name string, created time.Time) (*data.PageInfo, error) {
	if err := validateLocalName("page", name); err != nil {
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
	existing, err := s.GetPage(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("page %q already exists", fullName)
	}

	page := &data.PageInfo{FullName: fullName, PageID: s.newID(), CreationTime: created.UTC()}
	if err := s.execute(ctx, data.TablePagesInfo, []table.Operation{table.Upsert(data.PageEntity(s.wiki, page))}); err != nil {
		return nil, err
	}
	s.cache.SetPage(page)
	s.log.Info(fmt.Sprintf("Added page %s", fullName))
	return page, nil
}

// revision reads one revision of a page through the content cache.
func (s *Store) revision(ctx context.Context, pageID, key string) (*data.PageContent, error) {
	if c, ok := s.cache.GetContent(pageID, key); ok {
		return c, nil
	}
	e, err := s.get(ctx, data.TablePagesContents, pageID, key)
	if err != nil || e == nil {
		return nil, err
	}
	c, err := data.ContentFromEntity(e)
	if err != nil {
		return nil, err
	}
	s.cache.SetContent(pageID, key, c)
	return c, nil
}

// GetContent returns the current revision of a page, or nil if it was never saved.
func (s *Store) GetContent(ctx context.Context, page *data.PageInfo) (*data.PageContent, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.revision(ctx, page.PageID, data.RevisionCurrent)
}

// GetDraft returns the draft of a page, or nil if there is none.
func (s *Store) GetDraft(ctx context.Context, page *data.PageInfo) (*data.PageContent, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.revision(ctx, page.PageID, data.RevisionDraft)
}

// DeleteDraft deletes the draft of a page.
func (s *Store) DeleteDraft(ctx context.Context, page *data.PageInfo) error {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return err
	}
	draft, err := s.revision(ctx, page.PageID, data.RevisionDraft)
	if err != nil {
		return err
	}
	if draft == nil {
		return notFound("draft of page", page.FullName)
	}
	if err := s.execute(ctx, data.TablePagesContents, []table.Operation{table.Delete(page.PageID, data.RevisionDraft)}); err != nil {
		return err
	}
	s.cache.InvalidateContent(page.PageID, data.RevisionDraft)
	return nil
}

// backups returns the backup numbers of a page in ascending order.
func (s *Store) backups(ctx context.Context, pageID string) ([]int, error) {
	rows, err := s.query(ctx, data.TablePagesContents, table.Query{PartitionKey: pageID})
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		if n, ok := data.ParseBackupKey(row.RowKey); ok {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// GetBackups returns the backup numbers of a page, oldest first.
func (s *Store) GetBackups(ctx context.Context, page *data.PageInfo) ([]int, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.backups(ctx, page.PageID)
}

// GetBackupContent returns one backup of a page, or nil if it does not exist.
func (s *Store) GetBackupContent(ctx context.Context, page *data.PageInfo, revision int) (*data.PageContent, error) {
	if revision < 0 {
		return nil, invalid("revision %d is negative", revision)
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.revision(ctx, page.PageID, data.BackupKey(revision))
}

// SetBackupContent writes a specific backup slot. The slot must exist or be
// the next one, so numbering stays contiguous.
func (s *Store) SetBackupContent(ctx context.Context, page *data.PageInfo, content *data.PageContent, revision int) error {
	if err := validateContent(content); err != nil {
		return err
	}
	if revision < 0 {
		return invalid("revision %d is negative", revision)
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return err
	}
	backups, err := s.backups(ctx, page.PageID)
	if err != nil {
		return err
	}
	if revision > len(backups) {
		return invalid("revision %d would leave a gap after %d backups", revision, len(backups))
	}
	key := data.BackupKey(revision)
	if err := s.execute(ctx, data.TablePagesContents, []table.Operation{table.Upsert(data.ContentEntity(page.PageID, key, content))}); err != nil {
		return err
	}
	s.cache.InvalidateContent(page.PageID, key)
	return nil
}

// ModifyPage saves new content for a page.
//
// SaveDraft only writes the draft. SaveBackup copies the current revision to
// a new backup before overwriting it, in the same partition batch. SaveNormal
// overwrites the current revision. Non-draft saves reindex the page; an index
// failure is reported in the returned status and never fails the save.
func (s *Store) ModifyPage(ctx context.Context, page *data.PageInfo, content *data.PageContent, mode data.SaveMode) (IndexStatus, error) {
	var status IndexStatus
	if err := validateContent(content); err != nil {
		return status, err
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return status, err
	}

	c := *content
	c.LastModified = c.LastModified.UTC()
	if mode == data.SaveDraft {
		err := s.execute(ctx, data.TablePagesContents, []table.Operation{table.Upsert(data.ContentEntity(page.PageID, data.RevisionDraft, &c))})
		s.cache.InvalidateContent(page.PageID, data.RevisionDraft)
		return status, err
	}

	var ops []table.Operation
	if mode == data.SaveBackup {
		current, err := s.revision(ctx, page.PageID, data.RevisionCurrent)
		if err != nil {
			return status, err
		}
		if current != nil {
			backups, err := s.backups(ctx, page.PageID)
			if err != nil {
				return status, err
			}
			next := 0
			if len(backups) > 0 {
				next = backups[len(backups)-1] + 1
			}
			ops = append(ops, table.Upsert(data.ContentEntity(page.PageID, data.BackupKey(next), current)))
		}
	}
	ops = append(ops, table.Upsert(data.ContentEntity(page.PageID, data.RevisionCurrent, &c)))

	if err := s.execute(ctx, data.TablePagesContents, ops); err != nil {
		return status, err
	}
	s.cache.InvalidatePageContents(page.PageID)
	s.log.Debug(fmt.Sprintf("Saved page %s (%s)", page.FullName, mode))

	return s.sync.IndexPage(ctx, page, &c), nil
}

// RollbackPage makes a backup the current revision. The overwritten current
// revision is kept as a new backup.
func (s *Store) RollbackPage(ctx context.Context, page *data.PageInfo, revision int) (IndexStatus, error) {
	var status IndexStatus
	if revision < 0 {
		return status, invalid("revision %d is negative", revision)
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return status, err
	}
	backup, err := s.revision(ctx, page.PageID, data.BackupKey(revision))
	if err != nil {
		return status, err
	}
	if backup == nil {
		return status, notFound("backup", fmt.Sprintf("%s/%d", page.FullName, revision))
	}

	status = s.sync.UnindexPage(ctx, page)
	st, err := s.ModifyPage(ctx, page, backup, data.SaveBackup)
	status = status.Merge(st)
	if err != nil {
		return status, err
	}
	s.log.Info(fmt.Sprintf("Rolled back page %s to backup %d", page.FullName, revision))
	return status, nil
}

// DeleteBackups deletes backups 0..revision and renumbers the survivors down
// so they start at 0 again. A revision of -1 deletes every backup.
func (s *Store) DeleteBackups(ctx context.Context, page *data.PageInfo, revision int) error {
	if revision < -1 {
		return invalid("revision %d is out of range", revision)
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return err
	}
	backups, err := s.backups(ctx, page.PageID)
	if err != nil {
		return err
	}
	if revision == -1 && len(backups) > 0 {
		revision = backups[len(backups)-1]
	}
	if revision >= 0 && (len(backups) == 0 || revision > backups[len(backups)-1]) {
		return notFound("backup", fmt.Sprintf("%s/%d", page.FullName, revision))
	}
	defer s.cache.InvalidatePageContents(page.PageID)

	var deletes []table.Operation
	var survivors []int
	for _, n := range backups {
		if n <= revision {
			deletes = append(deletes, table.Delete(page.PageID, data.BackupKey(n)))
		} else {
			survivors = append(survivors, n)
		}
	}

	steps := []step{{"delete", func(ctx context.Context) error {
		return s.execute(ctx, data.TablePagesContents, deletes)
	}}}
	// Ascending order: every target key is free by the time it is written.
	for _, n := range survivors {
		n := n
		steps = append(steps, step{fmt.Sprintf("renumber %d", n), func(ctx context.Context) error {
			return s.renumberBackup(ctx, page.PageID, n, n-revision-1)
		}})
	}
	return s.runSteps(ctx, "delete backups", steps)
}

func (s *Store) renumberBackup(ctx context.Context, pageID string, from, to int) error {
	e, err := s.get(ctx, data.TablePagesContents, pageID, data.BackupKey(from))
	if err != nil {
		return err
	}
	if e == nil {
		return nil
	}
	moved := e.Clone()
	moved.RowKey = data.BackupKey(to)
	return s.execute(ctx, data.TablePagesContents, []table.Operation{
		table.Upsert(moved),
		table.Delete(pageID, data.BackupKey(from)),
	})
}
