package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/middleware"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/store"

	"github.com/go-chi/chi/v5"
)

// ContentStore is the part of the wiki store the HTTP API needs.
type ContentStore interface {
	GetPage(ctx context.Context, fullName string) (*data.PageInfo, error)
	GetPages(ctx context.Context, namespace string) ([]*data.PageInfo, error)
	AddPage(ctx context.Context, namespace, name string, created time.Time) (*data.PageInfo, error)
	GetContent(ctx context.Context, page *data.PageInfo) (*data.PageContent, error)
	ModifyPage(ctx context.Context, page *data.PageInfo, content *data.PageContent, mode data.SaveMode) (store.IndexStatus, error)
	RenamePage(ctx context.Context, page *data.PageInfo, newName string) (*data.PageInfo, store.IndexStatus, error)
	MovePage(ctx context.Context, page *data.PageInfo, destination string, copyCategories bool) (*data.PageInfo, store.IndexStatus, error)
	RemovePage(ctx context.Context, page *data.PageInfo) (store.IndexStatus, error)
	GetBackups(ctx context.Context, page *data.PageInfo) ([]int, error)
	RollbackPage(ctx context.Context, page *data.PageInfo, revision int) (store.IndexStatus, error)
	GetMessages(ctx context.Context, page *data.PageInfo) ([]*data.Message, error)
	AddMessage(ctx context.Context, page *data.PageInfo, m *data.Message, parent int) (*data.Message, store.IndexStatus, error)
	Search(ctx context.Context, query string) ([]store.SearchHit, error)
	RebuildIndex(ctx context.Context) (store.IndexStatus, error)
	IndexStats(ctx context.Context) (search.Stats, error)
	IsIndexCorrupted() bool
}

// PageHandler holds the dependencies for the page handlers.
type PageHandler struct {
	store ContentStore
	log   logger.Logger
	now   func() time.Time
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(s ContentStore, log logger.Logger) *PageHandler {
	return &PageHandler{
		store: s,
		log:   log,
		now:   time.Now,
	}
}

// indexReport is how a write tells the caller that the search index lagged.
type indexReport struct {
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

func newIndexReport(st store.IndexStatus) indexReport {
	r := indexReport{Degraded: st.Degraded}
	if st.Err != nil {
		r.Error = st.Err.Error()
	}
	return r
}

type pageResponse struct {
	Page  *data.PageInfo `json:"page"`
	Index indexReport    `json:"index"`
}

func pageName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func decode(r *http.Request, v interface{}) *middleware.AppError {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return middleware.BadRequest(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) *middleware.AppError {
	if err := middleware.WriteJSON(w, r, code, v); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to write response", Code: http.StatusInternalServerError}
	}
	return nil
}

// loadPage resolves the {name} URL parameter to an existing page.
func (h *PageHandler) loadPage(r *http.Request) (*data.PageInfo, *middleware.AppError) {
	name := pageName(r)
	page, err := h.store.GetPage(r.Context(), name)
	if err != nil {
		return nil, middleware.StoreError(err, "Failed to load page")
	}
	if page == nil {
		return nil, &middleware.AppError{Error: store.ErrNotFound, Message: fmt.Sprintf("page %s not found", name), Code: http.StatusNotFound}
	}
	return page, nil
}

// listHandler lists the pages of the namespace given by the ns query parameter.
func (h *PageHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.store.GetPages(r.Context(), r.URL.Query().Get("ns"))
	if err != nil {
		return middleware.StoreError(err, "Failed to list pages")
	}
	return writeJSON(w, r, http.StatusOK, pages)
}

func (h *PageHandler) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	return writeJSON(w, r, http.StatusOK, page)
}

func (h *PageHandler) contentHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	content, err := h.store.GetContent(r.Context(), page)
	if err != nil {
		return middleware.StoreError(err, "Failed to load content")
	}
	if content == nil {
		return &middleware.AppError{Error: store.ErrNotFound, Message: fmt.Sprintf("page %s has no content", page.FullName), Code: http.StatusNotFound}
	}
	return writeJSON(w, r, http.StatusOK, content)
}

type saveRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Comment     string   `json:"comment"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
	Mode        string   `json:"mode"`
}

// saveHandler stores new content for a page, creating the page when it does not exist yet.
func (h *PageHandler) saveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req saveRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	mode, ok := data.ParseSaveMode(req.Mode)
	if !ok {
		return middleware.BadRequest(errors.New("unknown save mode"), fmt.Sprintf("unknown save mode %q", req.Mode))
	}

	name := pageName(r)
	page, err := h.store.GetPage(r.Context(), name)
	if err != nil {
		return middleware.StoreError(err, "Failed to load page")
	}
	code := http.StatusOK
	now := h.now().UTC()
	if page == nil {
		ns, local := data.SplitFullName(name)
		if page, err = h.store.AddPage(r.Context(), ns, local, now); err != nil {
			return middleware.StoreError(err, "Failed to create page")
		}
		code = http.StatusCreated
	}

	content := &data.PageContent{
		Title:        req.Title,
		User:         middleware.GetUserInfo(r.Context()).Subject,
		LastModified: now,
		Comment:      req.Comment,
		Content:      req.Content,
		Keywords:     req.Keywords,
		Description:  req.Description,
	}
	status, err := h.store.ModifyPage(r.Context(), page, content, mode)
	if err != nil {
		return middleware.StoreError(err, "Failed to save page")
	}
	return writeJSON(w, r, code, pageResponse{Page: page, Index: newIndexReport(status)})
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *PageHandler) renameHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	var req renameRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	renamed, status, err := h.store.RenamePage(r.Context(), page, req.Name)
	if err != nil {
		return middleware.StoreError(err, "Failed to rename page")
	}
	return writeJSON(w, r, http.StatusOK, pageResponse{Page: renamed, Index: newIndexReport(status)})
}

type moveRequest struct {
	Namespace      string `json:"namespace"`
	CopyCategories bool   `json:"copyCategories"`
}

func (h *PageHandler) moveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	var req moveRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	moved, status, err := h.store.MovePage(r.Context(), page, req.Namespace, req.CopyCategories)
	if err != nil {
		return middleware.StoreError(err, "Failed to move page")
	}
	return writeJSON(w, r, http.StatusOK, pageResponse{Page: moved, Index: newIndexReport(status)})
}

func (h *PageHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	status, err := h.store.RemovePage(r.Context(), page)
	if err != nil {
		return middleware.StoreError(err, "Failed to delete page")
	}
	h.log.Info(fmt.Sprintf("Page %s deleted by %s", page.FullName, middleware.GetUserInfo(r.Context()).Subject))
	return writeJSON(w, r, http.StatusOK, pageResponse{Page: page, Index: newIndexReport(status)})
}

func (h *PageHandler) backupsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	backups, err := h.store.GetBackups(r.Context(), page)
	if err != nil {
		return middleware.StoreError(err, "Failed to list backups")
	}
	return writeJSON(w, r, http.StatusOK, backups)
}

type rollbackRequest struct {
	Revision int `json:"revision"`
}

func (h *PageHandler) rollbackHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	var req rollbackRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	status, err := h.store.RollbackPage(r.Context(), page, req.Revision)
	if err != nil {
		return middleware.StoreError(err, "Failed to roll back page")
	}
	return writeJSON(w, r, http.StatusOK, pageResponse{Page: page, Index: newIndexReport(status)})
}

func (h *PageHandler) messagesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	messages, err := h.store.GetMessages(r.Context(), page)
	if err != nil {
		return middleware.StoreError(err, "Failed to load messages")
	}
	if messages == nil {
		messages = []*data.Message{}
	}
	return writeJSON(w, r, http.StatusOK, messages)
}

type messageRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	// Parent is the id of the message replied to; omitted for a new thread.
	Parent *int `json:"parent"`
}

type messageResponse struct {
	Message *data.Message `json:"message"`
	Index   indexReport   `json:"index"`
}

func (h *PageHandler) postMessageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, appErr := h.loadPage(r)
	if appErr != nil {
		return appErr
	}
	var req messageRequest
	if appErr := decode(r, &req); appErr != nil {
		return appErr
	}
	parent := data.NoParent
	if req.Parent != nil {
		parent = *req.Parent
	}
	m := &data.Message{
		Username: middleware.GetUserInfo(r.Context()).Subject,
		Subject:  req.Subject,
		DateTime: h.now().UTC(),
		Body:     req.Body,
	}
	added, status, err := h.store.AddMessage(r.Context(), page, m, parent)
	if err != nil {
		return middleware.StoreError(err, "Failed to post message")
	}
	return writeJSON(w, r, http.StatusCreated, messageResponse{Message: added, Index: newIndexReport(status)})
}

func (h *PageHandler) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	q := r.URL.Query().Get("q")
	if q == "" {
		return middleware.BadRequest(errors.New("empty query"), "query parameter q is required")
	}
	hits, err := h.store.Search(r.Context(), q)
	if err != nil {
		return middleware.StoreError(err, "Search failed")
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return middleware.BadRequest(err, "limit must be a non-negative integer")
		}
		if n < len(hits) {
			hits = hits[:n]
		}
	}
	return writeJSON(w, r, http.StatusOK, hits)
}

type indexStatsResponse struct {
	search.Stats
	Corrupted bool `json:"corrupted"`
}

func (h *PageHandler) indexStatsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	stats, err := h.store.IndexStats(r.Context())
	if err != nil {
		return middleware.StoreError(err, "Failed to read index stats")
	}
	return writeJSON(w, r, http.StatusOK, indexStatsResponse{Stats: stats, Corrupted: h.store.IsIndexCorrupted()})
}

func (h *PageHandler) rebuildIndexHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	h.log.Info(fmt.Sprintf("Index rebuild requested by %s", middleware.GetUserInfo(r.Context()).Subject))
	status, err := h.store.RebuildIndex(r.Context())
	if err != nil {
		return middleware.StoreError(err, "Failed to rebuild index")
	}
	return writeJSON(w, r, http.StatusOK, newIndexReport(status))
}
