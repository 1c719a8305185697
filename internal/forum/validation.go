package forum

import (
	"fmt"
	"strings"
)

const (
	maxTitleLength   = 200
	maxContentLength = 20000
)

// Validate checks in and returns the post it describes.
func (in CreatePostInput) Validate() (*Post, error) {
	p := &Post{Title: strings.TrimSpace(in.Title), Content: strings.TrimSpace(in.Content)}
	if p.Title == "" || p.Content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidPost)
	}
	if len(p.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidPost, maxTitleLength)
	}
	if len(p.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidPost, maxContentLength)
	}
	return p, nil
}

// Validate checks in and returns the reply it describes.
func (in CreateReplyInput) Validate() (*Reply, error) {
	r := &Reply{Content: strings.TrimSpace(in.Content)}
	if r.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidPost)
	}
	if len(r.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidPost, maxContentLength)
	}
	return r, nil
}
