package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/campus-portal/internal/audit"
	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/event"
	"github.com/nerrad567/campus-portal/internal/forum"
	"github.com/nerrad567/campus-portal/internal/infrastructure/config"
	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
	"github.com/nerrad567/campus-portal/internal/infrastructure/influxdb"
	"github.com/nerrad567/campus-portal/internal/infrastructure/logging"
	"github.com/nerrad567/campus-portal/internal/infrastructure/ratelimit"
	"github.com/nerrad567/campus-portal/internal/material"
	"github.com/nerrad567/campus-portal/internal/notice"
	_ "github.com/nerrad567/campus-portal/migrations"
)

const testSecret = "api-test-secret-key-at-least-32-chars"

// fakeAnnouncer records MQTT announcements.
type fakeAnnouncer struct {
	mu    sync.Mutex
	kinds []string
}

func (f *fakeAnnouncer) Announce(kind string, _ any) error {
	f.mu.Lock()
	f.kinds = append(f.kinds, kind)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnnouncer) IsConnected() bool { return true }

func (f *fakeAnnouncer) announced() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.kinds...)
}

// fakeRecorder records auth telemetry events.
type fakeRecorder struct {
	mu     sync.Mutex
	events []influxdb.AuthEvent
}

func (f *fakeRecorder) WriteAuthEvent(e influxdb.AuthEvent) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeRecorder) count(action, outcome string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Action == action && e.Outcome == outcome {
			n++
		}
	}
	return n
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	db        *database.DB
	users     *auth.SQLUserRepository
	audit     *audit.SQLRepository
	announcer *fakeAnnouncer
	recorder  *fakeRecorder
}

type envOption func(*Deps)

func withRateLimit(perMinute int) envOption {
	return func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{Enabled: true, Backend: "memory", AuthRequestsPerMinute: perMinute}
		d.Limiter = ratelimit.NewMemory()
	}
}

// newTestEnv builds a Server over a migrated SQLite database.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "api-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	users := auth.NewUserRepository(db)
	auditRepo := audit.NewRepository(db)

	env := &testEnv{
		db:        db,
		users:     users,
		audit:     auditRepo,
		announcer: &fakeAnnouncer{},
		recorder:  &fakeRecorder{},
	}

	deps := Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:        config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		Logger:    logging.Discard(),
		DB:        db,
		Auth:      auth.NewService(users, issuer, auth.ServiceOptions{}),
		Users:     users,
		Materials: material.NewRepository(db),
		Events:    event.NewRepository(db),
		Notices:   notice.NewRepository(db),
		Forum:     forum.NewRepository(db),
		AuditRepo: auditRepo,
		Announcer: env.announcer,
		Telemetry: env.recorder,
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}
	if deps.Limiter != nil {
		lim := deps.Limiter
		t.Cleanup(func() { lim.Close() }) //nolint:errcheck // test cleanup
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.drainAuditLog(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	env.srv = srv
	env.handler = srv.Handler()
	return env
}

// do sends a JSON request through the router.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token.
func (e *testEnv) register(t *testing.T, name, email, role string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	decodeBody(t, rec, &resp)
	return resp.Token
}

// waitForAudit polls the audit store until an entry matching f appears.
func (e *testEnv) waitForAudit(t *testing.T, f audit.Filter) []audit.Entry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := e.audit.List(t.Context(), f)
		if err != nil {
			t.Fatalf("listing audit logs: %v", err)
		}
		if len(res.Logs) > 0 {
			return res.Logs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no audit entry matching %+v", f)
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e Error
	decodeBody(t, rec, &e)
	return e.Message
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil, want missing logger error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without auth error = nil")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["database"] != "ok" {
		t.Errorf("body = %v, want status ok and database ok", body)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := newTestEnv(t)
	env.db.Close() //nolint:errcheck // simulating an outage

	rec := env.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice@campus.edu", "STUDENT")

	rec := env.do(t, http.MethodGet, "/api/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var m SystemMetrics
	decodeBody(t, rec, &m)
	if m.Version != "test" {
		t.Errorf("Version = %q, want test", m.Version)
	}
	if !m.MQTT.Enabled || !m.MQTT.Connected {
		t.Errorf("MQTT = %+v, want enabled and connected", m.MQTT)
	}
	if m.Auth.Outcomes["register.success"] != 1 {
		t.Errorf("register.success = %d, want 1", m.Auth.Outcomes["register.success"])
	}
	if m.Database == nil {
		t.Error("Database = nil, want pool stats")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc123" {
		t.Errorf("X-Request-ID = %q, want abc123", got)
	}

	rec = env.do(t, http.MethodGet, "/api/health", "", nil)
	if got := rec.Header().Get("X-Request-ID"); len(got) != requestIDBytes*2 {
		t.Errorf("generated X-Request-ID = %q, want %d hex chars", got, requestIDBytes*2)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
