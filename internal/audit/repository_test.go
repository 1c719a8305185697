package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
	_ "github.com/nerrad567/campus-portal/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

func TestCreateAndList(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := t.Context()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionRegister, EntityType: "user", EntityID: "usr-1", UserID: "usr-1", CreatedAt: base},
		{Action: ActionLogin, EntityType: "user", EntityID: "usr-1", UserID: "usr-1", CreatedAt: base.Add(time.Minute)},
		{Action: ActionCreate, EntityType: "material", EntityID: "mat-1", UserID: "usr-1",
			Details: map[string]any{"title": "Notes"}, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" || e.Source != "api" {
			t.Errorf("Create() did not fill defaults: %+v", e)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Logs) != 3 || all.Limit != defaultLimit {
		t.Fatalf("List() = total %d, len %d, limit %d", all.Total, len(all.Logs), all.Limit)
	}
	if all.Logs[0].Action != ActionCreate {
		t.Errorf("first entry = %q, want most recent", all.Logs[0].Action)
	}
	if all.Logs[0].Details["title"] != "Notes" {
		t.Errorf("Details = %v", all.Logs[0].Details)
	}
	if all.Logs[1].Details != nil {
		t.Errorf("empty details should decode as nil, got %v", all.Logs[1].Details)
	}

	users, err := repo.List(ctx, Filter{EntityType: "user", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if users.Total != 2 || len(users.Logs) != 1 || users.Logs[0].Action != ActionLogin {
		t.Errorf("filtered page = %+v", users)
	}

	page2, err := repo.List(ctx, Filter{EntityType: "user", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2.Logs) != 1 || page2.Logs[0].Action != ActionRegister {
		t.Errorf("page 2 = %+v", page2.Logs)
	}
}

func TestFilterClamp(t *testing.T) {
	f := Filter{Limit: 10000, Offset: -5}
	f.clamp()
	if f.Limit != maxLimit || f.Offset != 0 {
		t.Errorf("clamp() = %+v", f)
	}
}
