package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-wiki-store/internal/auth"
	"go-wiki-store/internal/cache"
	"go-wiki-store/internal/config"
	"go-wiki-store/internal/handler"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/middleware"
	"go-wiki-store/internal/search"
	"go-wiki-store/internal/store"
	"go-wiki-store/internal/table"

	"github.com/jmoiron/sqlx"
)

// newTableClient opens the table backend selected by cfg. The returned db is
// nil for the memory backend.
func newTableClient(cfg config.DBConfig, log logger.Logger) (table.Client, *sqlx.DB, error) {
	if cfg.Driver == "memory" {
		log.Warn("Using the in-memory table backend; nothing will be persisted.")
		return table.NewMemoryClient(), nil, nil
	}

	log.Info("Connecting to the database...")
	db, err := table.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		log.Info("Applying database migrations...")
		if err := table.ApplyMigrations(db, cfg); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Migrations applied successfully.")
	}
	client, err := table.NewSQLClient(db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Database connection successful.")
	return client, db, nil
}

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Table Backend ---
	client, db, err := newTableClient(cfg.DB, log)
	if err != nil {
		log.Fatal(err, "Failed to open table backend")
	}
	if db != nil {
		defer db.Close()
	}

	// --- Cache Initialization ---
	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}

	// --- Search Index ---
	engine := search.NewEngine(search.NewWordStore(client, cfg.Store.Wiki, cfg.Index.BatchSize))
	synchronizer := search.NewSynchronizer(engine, search.NewMarkupPreparer(), log)

	// --- Content Store ---
	contentStore := store.New(client, pageCache, synchronizer, engine, cfg.Store.Wiki, log)
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	err = contentStore.Init(initCtx)
	cancelInit()
	if err != nil {
		log.Fatal(err, "Failed to initialize content store")
	}
	log.Info(fmt.Sprintf("Content store ready for wiki %q", contentStore.Wiki()))

	// --- Authorization Setup ---
	log.Info("Initializing authorization...")
	enforcer, err := auth.NewEnforcer(cfg.Auth, db)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)

	// --- Handler Initialization ---
	pageHandler := handler.NewPageHandler(contentStore, log)
	seoHandler := handler.NewSeoHandler(contentStore, log)
	authzMiddleware := middleware.Authorizer(enforcer, log)
	errorMiddleware := middleware.Error(log)

	// --- Router Setup ---
	router := handler.NewRouter(pageHandler, seoHandler, authzMiddleware, errorMiddleware)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
