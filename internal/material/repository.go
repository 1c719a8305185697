package material

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// Repository defines the interface for material persistence operations.
type Repository interface {
	Create(ctx context.Context, m *Material) error
	Get(ctx context.Context, id string) (*Material, error)
	List(ctx context.Context, f Filter) ([]Material, error)
	IncrementDownloads(ctx context.Context, id string) (*Material, error)
}

// SQLRepository implements Repository on SQLite or Postgres.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a SQL-backed material repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectMaterial = `SELECT m.id, m.title, m.subject, m.department, m.type, m.file_url,
	m.file_size, m.year, m.downloads, m.uploader_id, u.name, m.created_at, m.updated_at
	FROM materials m JOIN users u ON u.id = m.uploader_id`

// Create inserts m. The ID is generated if empty; UploaderID must reference a user.
func (r *SQLRepository) Create(ctx context.Context, m *Material) error {
	if m.ID == "" {
		m.ID = "mat-" + uuid.NewString()
	}
	stamp := database.FormatTime(time.Now())
	m.CreatedAt, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled
	m.UpdatedAt = m.CreatedAt
	m.Downloads = 0

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO materials (id, title, subject, department, type, file_url, file_size, year,
		 downloads, uploader_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		m.ID, m.Title, m.Subject, m.Department, string(m.Type), m.FileURL, m.FileSize, m.Year,
		m.UploaderID, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("inserting material %s: %w", m.ID, err)
	}
	return nil
}

// Get returns a material with its uploader.
func (r *SQLRepository) Get(ctx context.Context, id string) (*Material, error) {
	return scanMaterial(r.db.QueryRowContext(ctx, selectMaterial+" WHERE m.id = ?", id))
}

// List returns materials matching f, newest first.
func (r *SQLRepository) List(ctx context.Context, f Filter) ([]Material, error) {
	var where []string
	var args []any
	if f.Subject != "" {
		where = append(where, "m.subject = ?")
		args = append(args, f.Subject)
	}
	if f.Department != "" {
		where = append(where, "m.department = ?")
		args = append(args, f.Department)
	}
	if f.Type != "" {
		where = append(where, "m.type = ?")
		args = append(args, string(f.Type))
	}
	if f.Year != 0 {
		where = append(where, "m.year = ?")
		args = append(args, f.Year)
	}

	query := selectMaterial
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.created_at DESC, m.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing materials: %w", err)
	}
	defer rows.Close()

	out := []Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating materials: %w", err)
	}
	return out, nil
}

// IncrementDownloads atomically bumps the download counter and returns the
// updated material.
func (r *SQLRepository) IncrementDownloads(ctx context.Context, id string) (*Material, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE materials SET downloads = downloads + 1, updated_at = ? WHERE id = ?",
		database.FormatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("incrementing downloads for %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // supported by both drivers
		return nil, ErrMaterialNotFound
	}
	return r.Get(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMaterial(s scanner) (*Material, error) {
	var m Material
	var typ, createdAt, updatedAt string
	err := s.Scan(&m.ID, &m.Title, &m.Subject, &m.Department, &typ, &m.FileURL,
		&m.FileSize, &m.Year, &m.Downloads, &m.UploaderID, &m.Uploader.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("scanning material: %w", err)
	}
	m.Type = Type(typ)
	m.Uploader.ID = m.UploaderID
	m.CreatedAt, _ = database.ParseTime(createdAt) //nolint:errcheck // format is controlled
	m.UpdatedAt, _ = database.ParseTime(updatedAt) //nolint:errcheck // format is controlled
	return &m, nil
}
