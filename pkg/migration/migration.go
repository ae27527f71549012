// Package migration loads the embedded schema files and applies them to PostgreSQL.
package migration

import (
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version   string    // Version/timestamp (e.g., "20240101120000")
	Name      string    // Migration name (e.g., "create_cinema_tables")
	UpSQL     string    // SQL for applying the migration
	DownSQL   string    // SQL for rolling back the migration
	AppliedAt time.Time // When the migration was applied
}

// MigrationStatus represents the status of a migration.
type MigrationStatus string

const (
	// StatusPending means the migration has not been applied.
	StatusPending MigrationStatus = "pending"
	// StatusApplied means the migration has been applied.
	StatusApplied MigrationStatus = "applied"
	// StatusFailed means the migration failed to apply.
	StatusFailed MigrationStatus = "failed"
)

// MigrationRecord represents a migration in the tracking table.
type MigrationRecord struct {
	Version   string          `json:"version"`
	Name      string          `json:"name"`
	Status    MigrationStatus `json:"status"`
	AppliedAt *time.Time      `json:"appliedAt,omitempty"`
	Error     *string         `json:"error,omitempty"`
}

// FileName returns the file name of a migration.
// Format: {version}_{name}.{up|down}.sql
func FileName(version, name, direction string) string {
	return version + "_" + name + "." + direction + ".sql"
}
