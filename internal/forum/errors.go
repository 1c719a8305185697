package forum

import "errors"

var (
	// ErrPostNotFound is returned when a post ID does not exist.
	ErrPostNotFound = errors.New("post not found")

	// ErrInvalidPost is returned when a post or reply fails validation.
	ErrInvalidPost = errors.New("invalid post")
)
