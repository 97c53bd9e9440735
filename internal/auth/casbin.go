package auth

import (
	"fmt"

	"go-wiki-store/internal/config"

	"github.com/casbin/casbin/v2"
	"github.com/jmoiron/sqlx"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

const (
	// PolicyStoreMemory keeps policies in the enforcer only. They are reseeded on start.
	PolicyStoreMemory = "memory"
	// PolicyStoreSQL persists policies in the casbin_rule table of the configured database.
	PolicyStoreSQL = "sql"
)

// defaultModel is an RBAC model whose objects are request paths matched with keyMatch2.
const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

func loadModel(path string) (model.Model, error) {
	if path == "" {
		return model.NewModelFromString(defaultModel)
	}
	return model.NewModelFromFile(path)
}

// newSQLAdapter opens the casbin_rule table on db. The adapter panics when
// the table is missing, which is reported as an error here.
func newSQLAdapter(db *sqlx.DB) (adapter *sqlxadapter.Adapter, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("casbin_rule table is not available (are migrations applied?): %v", rec)
		}
	}()
	return sqlxadapter.NewAdapterFromOptions(&sqlxadapter.AdapterOptions{DB: db, TableName: "casbin_rule"}), nil
}

// NewEnforcer creates and configures a new Casbin enforcer.
// The model comes from cfg.Model, or the built-in RBAC model when that is empty.
// With the sql policy store, policies live in the casbin_rule table of db and
// are loaded from it.
func NewEnforcer(cfg config.AuthConfig, db *sqlx.DB) (*casbin.Enforcer, error) {
	m, err := loadModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.Enforcer
	switch cfg.PolicyStore {
	case "", PolicyStoreMemory:
		enforcer, err = casbin.NewEnforcer(m)
	case PolicyStoreSQL:
		if db == nil {
			return nil, fmt.Errorf("policy store %q needs a sql database driver", cfg.PolicyStore)
		}
		adapter, aerr := newSQLAdapter(db)
		if aerr != nil {
			return nil, aerr
		}
		enforcer, err = casbin.NewEnforcer(m, adapter)
	default:
		return nil, fmt.Errorf("unsupported policy store: %s", cfg.PolicyStore)
	}
	if err != nil {
		return nil, err
	}

	// keyMatch2 lets a policy object like /pages/* match /pages/Main.
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if cfg.PolicyStore == PolicyStoreSQL {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	return enforcer, nil
}
