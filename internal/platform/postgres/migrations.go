package postgres

import "embed"

// MigrationsFS holds the goose SQL migrations, embedded so the binary can
// migrate any database it is pointed at without a checkout on disk.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir is the path of the migration files inside MigrationsFS.
const MigrationsDir = "migrations"
