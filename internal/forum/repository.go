package forum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/campus-portal/internal/infrastructure/database"
)

// Repository defines the interface for forum persistence operations.
type Repository interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	CreatePost(ctx context.Context, p *Post) error
	CreateReply(ctx context.Context, r *Reply) error
}

// SQLRepository implements Repository on SQLite or Postgres.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a SQL-backed forum repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectPost = `SELECT p.id, p.title, p.content, p.author_id, u.name,
	(SELECT COUNT(*) FROM forum_replies r WHERE r.post_id = p.id),
	p.created_at, p.updated_at
	FROM forum_posts p JOIN users u ON u.id = p.author_id`

// ListPosts returns all posts with reply counts, newest first. Replies are not loaded.
func (r *SQLRepository) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, selectPost+" ORDER BY p.created_at DESC, p.id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	out := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	return out, nil
}

// GetPost returns a post with its replies, oldest reply first.
func (r *SQLRepository) GetPost(ctx context.Context, id string) (*Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, selectPost+" WHERE p.id = ?", id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.content, r.post_id, r.author_id, u.name, r.created_at
		 FROM forum_replies r JOIN users u ON u.id = r.author_id
		 WHERE r.post_id = ? ORDER BY r.created_at ASC, r.id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing replies for %s: %w", id, err)
	}
	defer rows.Close()

	p.Replies = []Reply{}
	for rows.Next() {
		var rep Reply
		var createdAt string
		if err := rows.Scan(&rep.ID, &rep.Content, &rep.PostID, &rep.AuthorID, &rep.Author.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		rep.Author.ID = rep.AuthorID
		rep.CreatedAt, _ = database.ParseTime(createdAt) //nolint:errcheck // format is controlled
		p.Replies = append(p.Replies, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating replies: %w", err)
	}
	return p, nil
}

// CreatePost inserts p. The ID is generated if empty.
func (r *SQLRepository) CreatePost(ctx context.Context, p *Post) error {
	if p.ID == "" {
		p.ID = "pst-" + uuid.NewString()
	}
	stamp := database.FormatTime(time.Now())
	p.CreatedAt, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled
	p.UpdatedAt = p.CreatedAt
	p.ReplyCount = 0

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO forum_posts (id, title, content, author_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, p.AuthorID, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("inserting post %s: %w", p.ID, err)
	}
	return nil
}

// CreateReply inserts rep under rep.PostID and bumps the post's updated_at.
// Returns ErrPostNotFound if the post does not exist.
func (r *SQLRepository) CreateReply(ctx context.Context, rep *Reply) error {
	if rep.ID == "" {
		rep.ID = "rpl-" + uuid.NewString()
	}
	stamp := database.FormatTime(time.Now())
	rep.CreatedAt, _ = database.ParseTime(stamp) //nolint:errcheck // format is controlled

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reply tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, r.db.Rebind(`UPDATE forum_posts SET updated_at = ? WHERE id = ?`), stamp, rep.PostID)
	if err != nil {
		return fmt.Errorf("touching post %s: %w", rep.PostID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("checking post %s: %w", rep.PostID, err)
	} else if n == 0 {
		return ErrPostNotFound
	}

	_, err = tx.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO forum_replies (id, content, post_id, author_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		rep.ID, rep.Content, rep.PostID, rep.AuthorID, stamp,
	)
	if err != nil {
		return fmt.Errorf("inserting reply %s: %w", rep.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reply %s: %w", rep.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*Post, error) {
	var p Post
	var createdAt, updatedAt string
	err := s.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.Author.Name, &p.ReplyCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("scanning post: %w", err)
	}
	p.Author.ID = p.AuthorID
	p.CreatedAt, _ = database.ParseTime(createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = database.ParseTime(updatedAt) //nolint:errcheck // format is controlled
	return &p, nil
}
