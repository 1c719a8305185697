package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// Repository defines the interface for event persistence operations.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
}

// SQLRepository implements Repository on SQLite or Postgres.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a SQL-backed event repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectEvent = `SELECT e.id, e.title, e.date, e.time, e.location, e.description,
	e.created_by_id, u.name, e.created_at, e.updated_at
	FROM events e JOIN users u ON u.id = e.created_by_id`

// Create inserts e. The ID is generated if empty.
func (r *SQLRepository) Create(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()
	}
	stamp := database.FormatTime(time.Now())
	e.CreatedAt, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled
	e.UpdatedAt = e.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, date, time, location, description, created_by_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, database.FormatTime(e.Date), e.Time, e.Location, e.Description,
		e.CreatedByID, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", e.ID, err)
	}
	return nil
}

// Get returns an event with its creator.
func (r *SQLRepository) Get(ctx context.Context, id string) (*Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, selectEvent+" WHERE e.id = ?", id))
}

// List returns all events in date order, soonest first.
func (r *SQLRepository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, selectEvent+" ORDER BY e.date ASC, e.id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var e Event
	var date, createdAt, updatedAt string
	err := s.Scan(&e.ID, &e.Title, &date, &e.Time, &e.Location, &e.Description,
		&e.CreatedByID, &e.CreatedBy.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	e.CreatedBy.ID = e.CreatedByID
	e.Date, _ = database.ParseTime(date)           //nolint:errcheck // format is controlled
	e.CreatedAt, _ = database.ParseTime(createdAt) //nolint:errcheck // format is controlled
	e.UpdatedAt, _ = database.ParseTime(updatedAt) //nolint:errcheck // format is controlled
	return &e, nil
}
