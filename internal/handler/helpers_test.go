//go:build unit || integration

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-wiki-store/internal/auth"
	"go-wiki-store/internal/cache"
	"go-wiki-store/internal/config"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/middleware"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/store"
	"go-wiki-store/internal/table"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type testApp struct {
	Router   *chi.Mux
	Store    *store.Store
	Enforcer *casbin.Enforcer
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestApp wires the full HTTP stack over client with the default policies seeded.
func newTestApp(t *testing.T, client table.Client, authCfg config.AuthConfig, db *sqlx.DB) *testApp {
	t.Helper()
	log := logger.Nop()

	c, err := cache.New(config.CacheConfig{PageContentSize: 16})
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	engine := search.NewEngine(search.NewWordStore(client, "wiki", 100))
	synchronizer := search.NewSynchronizer(engine, search.NewMarkupPreparer(), log)
	s := store.New(client, c, synchronizer, engine, "wiki", log)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}

	enforcer, err := auth.NewEnforcer(authCfg, db)
	if err != nil {
		t.Fatalf("Failed to create enforcer: %v", err)
	}
	auth.SeedDefaultPolicies(enforcer, log)

	pageHandler := NewPageHandler(s, log)
	pageHandler.now = func() time.Time { return fixedNow }
	router := NewRouter(pageHandler, NewSeoHandler(s, log), middleware.Authorizer(enforcer, log), middleware.Error(log))

	return &testApp{Router: router, Store: s, Enforcer: enforcer}
}

// do sends a request as user, with body encoded as JSON when it is not nil.
func (a *testApp) do(t *testing.T, user, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(middleware.UserHeader, user)
	}
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, want, rr.Body.String())
	}
}

func (a *testApp) savePage(t *testing.T, name string, req saveRequest) {
	t.Helper()
	rr := a.do(t, auth.RoleEditor, http.MethodPut, "/pages/"+name, req)
	if rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
		t.Fatalf("Failed to save %s: %d %s", name, rr.Code, rr.Body.String())
	}
}
