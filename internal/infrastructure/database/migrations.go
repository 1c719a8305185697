package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// MigrationsFS holds goose migration files, one directory per driver
// ("sqlite" and "postgres"). It is set by the migrations package:
//
//	import _ "github.com/nerrad567/campus-portal/migrations"
var MigrationsFS fs.FS

// gooseMu serialises access to goose's package-level base FS and dialect.
var gooseMu sync.Mutex

// gooseDialect maps a driver to the goose dialect name.
func gooseDialect(driver string) string {
	if driver == DriverPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// withGoose configures goose for this database and runs fn.
func (db *DB) withGoose(fn func() error) error {
	if MigrationsFS == nil {
		return ErrNoMigrations
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	sub, err := fs.Sub(MigrationsFS, db.driver)
	if err != nil {
		return fmt.Errorf("locating %s migrations: %w", db.driver, err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	goose.SetLogger(gooseLogger{log: db.logger})

	if err := goose.SetDialect(gooseDialect(db.driver)); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return fn()
}

// Migrate applies all pending migrations for the active driver.
// Each migration runs in its own transaction; a failure leaves earlier
// migrations committed and can be resumed by calling Migrate again.
func (db *DB) Migrate(ctx context.Context) error {
	return db.withGoose(func() error {
		if err := goose.UpContext(ctx, db.DB, "."); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	return db.withGoose(func() error {
		if err := goose.DownContext(ctx, db.DB, "."); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		return nil
	})
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	var version int64
	err := db.withGoose(func() error {
		v, err := goose.GetDBVersionContext(ctx, db.DB)
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// gooseLogger adapts slog to goose.Logger.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	if l.log != nil {
		l.log.Debug(fmt.Sprintf(format, v...), "component", "migrations")
	}
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	if l.log != nil {
		l.log.Error(fmt.Sprintf(format, v...), "component", "migrations")
	}
}
