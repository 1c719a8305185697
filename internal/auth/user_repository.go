package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// UserRepository is the credential store contract.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLUserRepository stores accounts in the users table.
type SQLUserRepository struct {
	db *database.DB
}

// NewUserRepository returns a repository on db.
func NewUserRepository(db *database.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

const (
	selectUser = `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users`
	insertUser = `INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// Create stores user, assigning an ID when empty and lower-casing the
// email. ErrEmailExists is returned if the address is taken.
func (r *SQLUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()
	}
	user.Email = NormaliseEmail(user.Email)

	// Round-trip through the stored format so the caller sees exactly
	// what a later read would return.
	stamp := database.FormatTime(time.Now().UTC())
	created, err := database.ParseTime(stamp)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	user.CreatedAt, user.UpdatedAt = created, created

	_, err = r.db.ExecContext(ctx, insertUser,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), stamp, stamp)
	switch {
	case database.IsUniqueViolation(err):
		return ErrEmailExists
	case err != nil:
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// GetByID returns ErrUserNotFound if no account has id.
func (r *SQLUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return readUser(r.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
}

// GetByEmail matches case-insensitively.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return readUser(r.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, NormaliseEmail(email)))
}

// List returns every account, oldest first.
func (r *SQLUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := readUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Delete removes the account and, through foreign keys, its content.
func (r *SQLUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // both drivers report it
		return ErrUserNotFound
	}
	return nil
}

// Count returns the number of accounts.
func (r *SQLUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func readUser(row rowScanner) (*User, error) {
	var u User
	var role, createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("reading user: %w", err)
	}
	u.Role = Role(role)

	var err error
	if u.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", u.ID, err)
	}
	if u.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("user %s updated_at: %w", u.ID, err)
	}
	return &u, nil
}
