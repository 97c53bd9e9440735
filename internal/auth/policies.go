package auth

import (
	"fmt"

	"go-wiki-store/internal/logger"

	"github.com/casbin/casbin/v2"
)

const (
	RoleAnonymous = "anonymous"
	RoleEditor    = "editor"
	RoleAdmin     = "admin"
)

// DefaultPolicies are the rules every wiki starts with.
var DefaultPolicies = [][]string{
	// Anyone can read pages, discussions and search.
	{RoleAnonymous, "/pages", "GET"},
	{RoleAnonymous, "/pages/*", "GET"},
	{RoleAnonymous, "/search", "GET"},
	{RoleAnonymous, "/sitemap.xml", "GET"},
	{RoleAnonymous, "/robots.txt", "GET"},

	// Editors change content and post messages.
	{RoleEditor, "/pages/*", "PUT"},
	{RoleEditor, "/pages/*", "POST"},
	{RoleEditor, "/pages/*", "DELETE"},

	// Admins look after the search index.
	{RoleAdmin, "/index/*", "GET"},
	{RoleAdmin, "/index/*", "POST"},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, so it is safe to run on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// editor inherits anonymous, admin inherits editor.
	for _, g := range [][2]string{{RoleEditor, RoleAnonymous}, {RoleAdmin, RoleEditor}} {
		if has, _ := e.HasRoleForUser(g[0], g[1]); !has {
			if _, err := e.AddRoleForUser(g[0], g[1]); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role '%s' -> '%s'", g[0], g[1]))
			}
		}
	}
	log.Info("Policy seeding complete.")
}
