package event

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxTitleLength       = 200
	maxLocationLength    = 200
	maxTimeLength        = 50
	maxDescriptionLength = 5000
)

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC 3339", ErrInvalidEvent)
	}
	return t.UTC(), nil
}

// Validate checks in and returns the event it describes.
func (in CreateInput) Validate() (*Event, error) {
	e := &Event{
		Title:       strings.TrimSpace(in.Title),
		Time:        strings.TrimSpace(in.Time),
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
	}

	if e.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if len(e.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidEvent, maxTitleLength)
	}
	if in.Date == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	e.Date = date

	if len(e.Time) > maxTimeLength {
		return nil, fmt.Errorf("%w: time exceeds %d characters", ErrInvalidEvent, maxTimeLength)
	}
	if len(e.Location) > maxLocationLength {
		return nil, fmt.Errorf("%w: location exceeds %d characters", ErrInvalidEvent, maxLocationLength)
	}
	if len(e.Description) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidEvent, maxDescriptionLength)
	}

	return e, nil
}
