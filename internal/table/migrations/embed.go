// Package migrations embeds the SQL schema of the table store, one directory per dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql mysql/*.sql
var FS embed.FS
