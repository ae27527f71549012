// Package migrations embeds the versioned schema files for every supported dialect.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Directory names inside FS.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)
