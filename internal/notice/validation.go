package notice

import (
	"fmt"
	"strings"
)

const (
	maxTitleLength   = 200
	maxContentLength = 10000
)

// ParsePriority normalises s. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: priority must be low, medium or high", ErrInvalidNotice)
	}
}

// Validate checks in and returns the notice it describes.
func (in CreateInput) Validate() (*Notice, error) {
	n := &Notice{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}
	if n.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidNotice)
	}
	if len(n.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidNotice, maxTitleLength)
	}
	if n.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidNotice)
	}
	if len(n.Content) > maxContentLength {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidNotice, maxContentLength)
	}
	p, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	n.Priority = p
	return n, nil
}
