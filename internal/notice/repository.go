package notice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// Repository defines the interface for notice persistence operations.
type Repository interface {
	Create(ctx context.Context, n *Notice) error
	List(ctx context.Context) ([]Notice, error)
}

// SQLRepository implements Repository on SQLite or Postgres.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a SQL-backed notice repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts n, stamping Date with the current time if unset.
func (r *SQLRepository) Create(ctx context.Context, n *Notice) error {
	if n.ID == "" {
		n.ID = "ntc-" + uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.Date.IsZero() {
		n.Date = time.Now()
	}
	stamp := database.FormatTime(n.Date)
	n.Date, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notices (id, title, content, priority, date, created_by_id) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, string(n.Priority), stamp, n.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("inserting notice %s: %w", n.ID, err)
	}
	return nil
}

// List returns all notices, newest first.
func (r *SQLRepository) List(ctx context.Context) ([]Notice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT n.id, n.title, n.content, n.priority, n.date, n.created_by_id, u.name
		 FROM notices n JOIN users u ON u.id = n.created_by_id
		 ORDER BY n.date DESC, n.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing notices: %w", err)
	}
	defer rows.Close()

	out := []Notice{}
	for rows.Next() {
		var n Notice
		var priority, date string
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &priority, &date, &n.CreatedByID, &n.CreatedBy.Name); err != nil {
			return nil, fmt.Errorf("scanning notice: %w", err)
		}
		n.Priority = Priority(priority)
		n.Date, _ = database.ParseTime(date) //nolint:errcheck // format is controlled
		n.CreatedBy.ID = n.CreatedByID
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notices: %w", err)
	}
	return out, nil
}
