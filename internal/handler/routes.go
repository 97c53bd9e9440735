package handler

import (
	"net/http"

	appmw "go-wiki-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures a new chi router.
func NewRouter(pageHandler *PageHandler, seoHandler *SeoHandler, authzMiddleware func(http.Handler) http.Handler, errorMiddleware func(appmw.AppHandler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appmw.SettingsMiddleware)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authzMiddleware)

		r.Get("/robots.txt", seoHandler.robotsHandler)
		r.Get("/sitemap.xml", seoHandler.sitemapHandler)

		r.Method(http.MethodGet, "/pages", errorMiddleware(pageHandler.listHandler))
		r.Route("/pages/{name}", func(r chi.Router) {
			r.Method(http.MethodGet, "/", errorMiddleware(pageHandler.getHandler))
			r.Method(http.MethodPut, "/", errorMiddleware(pageHandler.saveHandler))
			r.Method(http.MethodDelete, "/", errorMiddleware(pageHandler.deleteHandler))
			r.Method(http.MethodGet, "/content", errorMiddleware(pageHandler.contentHandler))
			r.Method(http.MethodPost, "/rename", errorMiddleware(pageHandler.renameHandler))
			r.Method(http.MethodPost, "/move", errorMiddleware(pageHandler.moveHandler))
			r.Method(http.MethodGet, "/backups", errorMiddleware(pageHandler.backupsHandler))
			r.Method(http.MethodPost, "/rollback", errorMiddleware(pageHandler.rollbackHandler))
			r.Method(http.MethodGet, "/messages", errorMiddleware(pageHandler.messagesHandler))
			r.Method(http.MethodPost, "/messages", errorMiddleware(pageHandler.postMessageHandler))
		})

		r.Method(http.MethodGet, "/search", errorMiddleware(pageHandler.searchHandler))
		r.Method(http.MethodGet, "/index/stats", errorMiddleware(pageHandler.indexStatsHandler))
		r.Method(http.MethodPost, "/index/rebuild", errorMiddleware(pageHandler.rebuildIndexHandler))
	})

	return r
}
