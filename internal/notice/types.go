package notice

import (
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// Priority ranks how prominently a notice is displayed.
type Priority string

// Notice priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notice is an announcement to the campus.
type Notice struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Priority    Priority     `json:"priority"`
	Date        time.Time    `json:"date"`
	CreatedByID string       `json:"createdById"`
	CreatedBy   auth.UserRef `json:"createdBy"`
}

// CreateInput is the body of a new-notice request. Priority defaults to medium.
type CreateInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
}
