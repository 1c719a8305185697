package event

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
	_ "github.com/nerrad567/campus-portal/migrations"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		Driver:      database.DriverSQLite,
		Path:        filepath.Join(t.TempDir(), "event-test.db"),
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

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-11-20", time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC), false},
		{"2026-11-20T15:30:00+02:00", time.Date(2026, 11, 20, 13, 30, 0, 0, time.UTC), false},
		{"20/11/2026", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if _, err := (CreateInput{Date: "2026-01-01"}).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("missing title error = %v", err)
	}
	if _, err := (CreateInput{Title: "Fair"}).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("missing date error = %v", err)
	}
	if _, err := (CreateInput{Title: "Fair", Date: "soon"}).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("bad date error = %v", err)
	}

	e, err := CreateInput{Title: " Career Fair ", Date: "2026-03-01", Time: "10:00", Location: "Main Hall"}.Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if e.Title != "Career Fair" || e.Location != "Main Hall" {
		t.Errorf("Validate() = %+v", e)
	}
}

func TestRepository(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := t.Context()

	creator := &auth.User{Name: "Prof X", Email: "x@campus.edu", PasswordHash: "h", Role: auth.RoleFaculty}
	if err := auth.NewUserRepository(db).Create(ctx, creator); err != nil {
		t.Fatal(err)
	}

	later, _ := CreateInput{Title: "Later", Date: "2026-12-01"}.Validate()
	sooner, _ := CreateInput{Title: "Sooner", Date: "2026-02-01", Time: "09:00"}.Validate()
	for _, e := range []*Event{later, sooner} {
		e.CreatedByID = creator.ID
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Title != "Sooner" {
		t.Fatalf("List() = %+v, want date order", list)
	}
	if list[0].CreatedBy.Name != "Prof X" {
		t.Errorf("CreatedBy = %+v", list[0].CreatedBy)
	}

	got, err := repo.Get(ctx, sooner.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Date.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) || got.Time != "09:00" {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := repo.Get(ctx, "evt-missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrEventNotFound", err)
	}
}
