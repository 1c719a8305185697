package event

import (
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// Event is a scheduled campus happening.
type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Date        time.Time    `json:"date"`
	Time        string       `json:"time"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	CreatedByID string       `json:"createdById"`
	CreatedBy   auth.UserRef `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// CreateInput is the body of a new-event request.
// Date is either YYYY-MM-DD or an RFC 3339 timestamp; Time is free text ("14:00").
type CreateInput struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Description string `json:"description"`
}
