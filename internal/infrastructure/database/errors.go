package database

import "errors"

// ErrNoMigrations is returned when no migration files have been registered.
var ErrNoMigrations = errors.New("database: no migrations registered")
