package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/logger"
)

// PageLister is what the SEO handlers read from the store.
type PageLister interface {
	GetNamespaces(ctx context.Context) ([]*data.NamespaceInfo, error)
	GetPages(ctx context.Context, namespace string) ([]*data.PageInfo, error)
	GetContent(ctx context.Context, page *data.PageInfo) (*data.PageContent, error)
}

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	store PageLister
	log   logger.Logger
}

// NewSeoHandler creates a new SeoHandler.
func NewSeoHandler(s PageLister, log logger.Logger) *SeoHandler {
	return &SeoHandler{store: s, log: log}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// robotsHandler serves robots.txt pointing at the sitemap of this host.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /pages/")
	fmt.Fprintln(w, "Disallow: /index/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", baseURL(r))
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// allPages lists the pages of the root namespace and of every stored namespace.
func (h *SeoHandler) allPages(ctx context.Context) ([]*data.PageInfo, error) {
	namespaces, err := h.store.GetNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := h.store.GetPages(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, ns := range namespaces {
		nsPages, err := h.store.GetPages(ctx, ns.Name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, nsPages...)
	}
	return pages, nil
}

// sitemapHandler generates and serves a dynamic sitemap.xml.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	pages, err := h.allPages(r.Context())
	if err != nil {
		h.log.Error(err, "Failed to retrieve pages for sitemap")
		http.Error(w, "Failed to retrieve pages for sitemap", http.StatusInternalServerError)
		return
	}

	base := baseURL(r) + "/pages/"
	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(pages)),
	}
	for _, page := range pages {
		entry := sitemapURL{Loc: base + url.PathEscape(page.FullName)}
		content, err := h.store.GetContent(r.Context(), page)
		if err != nil {
			h.log.Error(err, fmt.Sprintf("Failed to read content of %s for sitemap", page.FullName))
		} else if content != nil {
			entry.LastMod = content.LastModified.Format(sitemapDateFormat)
		}
		sitemap.URLs = append(sitemap.URLs, entry)
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		h.log.Error(err, "Failed to generate sitemap XML")
	}
}
