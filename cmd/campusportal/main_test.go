package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

const testSecret = "main-test-secret-with-at-least-32-chars"

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestRun_InvalidConfigPath(t *testing.T) {
	t.Setenv("CAMPUS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingSecret(t *testing.T) {
	t.Setenv("CAMPUS_JWT_SECRET", "")
	path := writeTestConfig(t, `
database:
  driver: sqlite
  path: "`+filepath.Join(t.TempDir(), "portal.db")+`"
`)
	t.Setenv("CAMPUS_CONFIG", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should refuse to start without a signing secret")
	}
}

func TestRun_StartupSeedAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "portal.db")
	path := writeTestConfig(t, fmt.Sprintf(`
portal:
  id: test-campus
database:
  driver: sqlite
  path: %q
  wal_mode: true
  busy_timeout: 5
api:
  host: "127.0.0.1"
  port: %d
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
security:
  jwt:
    secret: %q
    token_ttl: 1
  seed_admin:
    email: "registrar@campus.edu"
  rate_limit:
    enabled: true
    backend: memory
    auth_requests_per_minute: 10
`, dbPath, freePort(t), testSecret))
	t.Setenv("CAMPUS_CONFIG", path)

	var seedOut bytes.Buffer
	orig := seedOutput
	seedOutput = &seedOut
	t.Cleanup(func() { seedOutput = orig })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(seedOut.String(), "registrar@campus.edu one-time password: ") {
		t.Errorf("seed output = %q, want one-time password line", seedOut.String())
	}

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: dbPath})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	admin, err := auth.NewUserRepository(db).GetByEmail(context.Background(), "registrar@campus.edu")
	if err != nil {
		t.Fatalf("seed admin not found: %v", err)
	}
	if admin.Role != auth.RoleAdmin {
		t.Errorf("seed admin role = %q, want ADMIN", admin.Role)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CAMPUS_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("CAMPUS_CONFIG", "/custom/config.yaml")
	if got := getConfigPath(); got != "/custom/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

func TestRegisterRoles(t *testing.T) {
	got := registerRoles([]string{"student", " FACULTY ", "dean"})
	want := []auth.Role{auth.RoleStudent, auth.RoleFaculty}
	if !slices.Equal(got, want) {
		t.Errorf("registerRoles() = %v, want %v", got, want)
	}
}
