// Package migrations holds the goose schema files for each supported driver.
// Importing it for side effects hands them to the database package:
//
//	import _ "github.com/nerrad567/campus-portal/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// SQLite and Postgres disagree on column types and constraint syntax, so
// each has its own directory.
//
//go:embed sqlite/*.sql postgres/*.sql
var schemaFiles embed.FS

func init() {
	database.MigrationsFS = schemaFiles
}
