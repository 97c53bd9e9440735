package store

import (
	"context"
	"fmt"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/table"
)

// SearchHit is a search result resolved to a page, and to a message of that
// page when MessageID is not data.NoParent.
type SearchHit struct {
	Page      *data.PageInfo `json:"page"`
	MessageID int            `json:"messageId"`
	Title     string         `json:"title"`
	Relevance int            `json:"relevance"`
}

// Search runs a query against the index and resolves every result to its
// page. Results naming pages that no longer exist are dropped.
func (s *Store) Search(ctx context.Context, query string) ([]SearchHit, error) {
	results, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		pageName, msgID := r.Document.Name, data.NoParent
		if r.Document.TypeTag == search.TypeMessage {
			name, id, ok := search.ParseMessageDocumentName(r.Document.Name)
			if !ok {
				s.log.Warn(fmt.Sprintf("Ignoring malformed message document %s", r.Document.Name))
				continue
			}
			pageName, msgID = name, id
		}
		page, err := s.GetPage(ctx, pageName)
		if err != nil {
			return nil, err
		}
		if page == nil {
			s.log.Debug(fmt.Sprintf("Ignoring stale document %s", r.Document.Name))
			continue
		}
		hits = append(hits, SearchHit{Page: page, MessageID: msgID, Title: r.Document.Title, Relevance: r.Relevance})
	}
	return hits, nil
}

// RebuildIndex clears the index and indexes the current revision and the
// messages of every page. A clean rebuild clears the corruption flag.
func (s *Store) RebuildIndex(ctx context.Context) (IndexStatus, error) {
	var status IndexStatus
	if err := s.index.Clear(ctx); err != nil {
		return status, fmt.Errorf("failed to clear index: %w", err)
	}
	s.sync.ResetCorrupted()

	pages, err := s.allPages(ctx)
	if err != nil {
		return status, err
	}
	for _, page := range pages {
		content, err := s.revision(ctx, page.PageID, data.RevisionCurrent)
		if err != nil {
			return status, err
		}
		if content != nil {
			status = status.Merge(s.sync.IndexPage(ctx, page, content))
		}
		messages, err := s.messageTree(ctx, page.PageID)
		if err != nil {
			return status, err
		}
		status = status.Merge(s.sync.IndexMessageTree(ctx, page, messages))
	}
	s.log.Info(fmt.Sprintf("Rebuilt index of %d pages", len(pages)))
	return status, nil
}

// IndexStats returns the size of the index.
func (s *Store) IndexStats(ctx context.Context) (search.Stats, error) {
	return s.index.Stats(ctx)
}

// IsIndexCorrupted reports whether a non-empty document indexed zero words
// since the last rebuild.
func (s *Store) IsIndexCorrupted() bool {
	return s.sync.Corrupted()
}

// ReconcileReport lists what Reconcile repaired.
type ReconcileReport struct {
	Categories      []string `json:"categories"`
	NavigationPaths []string `json:"navigationPaths"`
	DanglingNames   []string `json:"danglingNames"`
}

// Reconcile drops category and navigation path entries naming pages that do
// not exist, which an interrupted rename, move or removal can leave behind.
func (s *Store) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	rows, err := s.query(ctx, data.TablePagesInfo, table.Query{})
	if err != nil {
		return nil, err
	}
	exists := make(map[string]bool, len(rows))
	for _, row := range rows {
		exists[row.RowKey] = true
	}

	report := &ReconcileReport{}
	dangling := make(map[string]bool)
	prune := func(names data.NameList) (data.NameList, bool) {
		out := make(data.NameList, 0, len(names))
		for _, n := range names {
			if exists[n] {
				out = append(out, n)
			} else if !dangling[n] {
				dangling[n] = true
				report.DanglingNames = append(report.DanglingNames, n)
			}
		}
		return out, len(out) != len(names)
	}

	catRows, err := s.query(ctx, data.TableCategories, table.Query{})
	if err != nil {
		return nil, err
	}
	var catOps []table.Operation
	for _, row := range catRows {
		cat := data.CategoryFromEntity(row)
		var changed bool
		if cat.Pages, changed = prune(cat.Pages); changed {
			catOps = append(catOps, table.Upsert(data.CategoryEntity(s.wiki, cat)))
			report.Categories = append(report.Categories, cat.FullName)
		}
	}

	navRows, err := s.query(ctx, data.TableNavigationPaths, table.Query{})
	if err != nil {
		return nil, err
	}
	var navOps []table.Operation
	for _, row := range navRows {
		path := data.NavigationPathFromEntity(row)
		var changed bool
		if path.Pages, changed = prune(path.Pages); changed {
			navOps = append(navOps, table.Upsert(data.NavigationPathEntity(s.wiki, path)))
			report.NavigationPaths = append(report.NavigationPaths, path.FullName)
		}
	}

	err = s.runSteps(ctx, "reconcile", []step{
		{"categories", func(ctx context.Context) error { return s.execute(ctx, data.TableCategories, catOps) }},
		{"navigation", func(ctx context.Context) error { return s.execute(ctx, data.TableNavigationPaths, navOps) }},
	})
	if err != nil {
		return nil, err
	}
	if len(report.DanglingNames) > 0 {
		s.log.Warn(fmt.Sprintf("Reconcile dropped %d dangling page names", len(report.DanglingNames)))
	}
	return report, nil
}
