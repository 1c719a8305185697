package database

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

//go:embed testdata/sqlite/*.sql
var testMigrationsFS embed.FS

func useTestMigrations(t *testing.T) {
	t.Helper()
	orig := MigrationsFS
	t.Cleanup(func() { MigrationsFS = orig })

	sub, err := fs.Sub(testMigrationsFS, "testdata")
	if err != nil {
		t.Fatalf("fs.Sub() error = %v", err)
	}
	MigrationsFS = sub
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (id, name, size) VALUES (?, ?, ?)", "w1", "gear", 3); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", version)
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("SchemaVersion() after down = %d, want 1", version)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	orig := MigrationsFS
	t.Cleanup(func() { MigrationsFS = orig })
	MigrationsFS = nil

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); !errors.Is(err, ErrNoMigrations) {
		t.Errorf("Migrate() error = %v, want ErrNoMigrations", err)
	}
}

func TestMigrateLogsProgress(t *testing.T) {
	useTestMigrations(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db, err := Open(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "logged.db"),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !strings.Contains(buf.String(), "component=migrations") {
		t.Errorf("no migration output logged, got %q", buf.String())
	}
}
