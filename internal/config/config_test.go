//go:build unit

package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got '%s'", cfg.Server.Port)
	}
	if cfg.DB.Driver != "sqlite3" {
		t.Errorf("expected driver sqlite3, got '%s'", cfg.DB.Driver)
	}
	if !cfg.DB.Migrate {
		t.Error("expected migrations to be enabled by default")
	}
	if cfg.Store.Wiki != "root" {
		t.Errorf("expected wiki 'root', got '%s'", cfg.Store.Wiki)
	}
	if cfg.Cache.PageContentSize != 512 {
		t.Errorf("expected page content cache size 512, got %d", cfg.Cache.PageContentSize)
	}
	if cfg.Index.BatchSize != 100 {
		t.Errorf("expected index batch size 100, got %d", cfg.Index.BatchSize)
	}
	if cfg.Auth.PolicyStore != "memory" {
		t.Errorf("expected memory policy store, got '%s'", cfg.Auth.PolicyStore)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yml")
	yml := `
db:
  driver: mysql
  dsn: "wiki:secret@tcp(localhost:3306)/wiki"
store:
  wiki: docs
log:
  level: debug
  format: json
`
	if err := v.ReadConfig(strings.NewReader(yml)); err != nil {
		t.Fatalf("failed to read yaml: %v", err)
	}

	cfg, err := load(v, false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DB.Driver != "mysql" {
		t.Errorf("expected driver mysql, got '%s'", cfg.DB.Driver)
	}
	if cfg.Store.Wiki != "docs" {
		t.Errorf("expected wiki 'docs', got '%s'", cfg.Store.Wiki)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	// Unset keys keep their defaults.
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port, got '%s'", cfg.Server.Port)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WIKI_STORE_WIKI", "intranet")
	t.Setenv("WIKI_DB_DRIVER", "memory")

	cfg, err := load(viper.New(), false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Store.Wiki != "intranet" {
		t.Errorf("expected wiki from env, got '%s'", cfg.Store.Wiki)
	}
	if cfg.DB.Driver != "memory" {
		t.Errorf("expected driver from env, got '%s'", cfg.DB.Driver)
	}
}
