package material

import (
	"time"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// Type is the document format or kind of a material.
type Type string

// Supported material types. The values are the labels the upload form
// shows and are stored as is.
const (
	TypePDF           Type = "PDF"
	TypePPT           Type = "PPT"
	TypeDOC           Type = "DOC"
	TypeQuestionPaper Type = "Question Paper"
	TypeNotes         Type = "Notes"
	TypeLabManual     Type = "Lab Manual"
)

// AllTypes returns every supported material type.
func AllTypes() []Type {
	return []Type{TypePDF, TypePPT, TypeDOC, TypeQuestionPaper, TypeNotes, TypeLabManual}
}

// Material is an uploaded study resource.
type Material struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Subject    string       `json:"subject"`
	Department string       `json:"department"`
	Type       Type         `json:"type"`
	FileURL    string       `json:"fileUrl"`
	FileSize   int64        `json:"fileSize"`
	Year       int          `json:"year"`
	Downloads  int          `json:"downloads"`
	UploaderID string       `json:"uploaderId"`
	Uploader   auth.UserRef `json:"uploader"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// CreateInput is the body of a new-material request.
type CreateInput struct {
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	Department string `json:"department"`
	Type       string `json:"type"`
	FileURL    string `json:"fileUrl"`
	FileSize   int64  `json:"fileSize"`
	Year       int    `json:"year"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Subject    string
	Department string
	Type       Type
	Year       int
}
