//go:build integration

package auth

import (
	"path/filepath"
	"testing"

	"go-wiki-store/internal/config"
	"go-wiki-store/internal/logger"
	"go-wiki-store/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.DBConfig {
	t.Helper()
	return &config.DBConfig{Driver: table.DriverSQLite3, DSN: filepath.Join(t.TempDir(), "auth.db"), }
}

func TestSQLPolicyStore_RoundTrip(t *testing.T) {
	cfg := sqliteConfig(t)
	db, err := table.NewDB(*cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, table.ApplyMigrations(db, *cfg))

	e, err := NewEnforcer(config.AuthConfig{PolicyStore: PolicyStoreSQL}, db)
	require.NoError(t, err)
	SeedDefaultPolicies(e, logger.Nop())

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM casbin_rule WHERE ptype = 'p'"))
	assert.Equal(t, len(DefaultPolicies), count)

	reloaded, err := NewEnforcer(config.AuthConfig{PolicyStore: PolicyStoreSQL}, db)
	require.NoError(t, err)
	ok, err := reloaded.Enforce(RoleAdmin, "/index/rebuild", "POST")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLPolicyStore_MissingTable(t *testing.T) {
	cfg := sqliteConfig(t)
	db, err := table.NewDB(*cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = NewEnforcer(config.AuthConfig{PolicyStore: PolicyStoreSQL}, db)
	assert.ErrorContains(t, err, "casbin_rule")
}
