package forum

import (
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// Post is a forum thread starter.
type Post struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	AuthorID   string       `json:"authorId"`
	Author     auth.UserRef `json:"author"`
	ReplyCount int          `json:"replyCount"`
	Replies    []Reply      `json:"replies,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Reply is a response within a post thread.
type Reply struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	PostID    string       `json:"postId"`
	AuthorID  string       `json:"authorId"`
	Author    auth.UserRef `json:"author"`
	CreatedAt time.Time    `json:"createdAt"`
}

// CreatePostInput is the body of a new-post request.
type CreatePostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateReplyInput is the body of a reply request.
type CreateReplyInput struct {
	Content string `json:"content"`
}
