package material

import (
	"fmt"
	"net/url"
	"strings"
)

// Validation constants.
const (
	maxTitleLength = 200
	maxFieldLength = 100
	maxURLLength   = 2048

	// MaxFileSize is the largest file a material may reference (10 MiB).
	MaxFileSize = 10 * 1024 * 1024
)

// ParseType matches s against the supported types ignoring case and
// surrounding space, returning the canonical spelling.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	all := AllTypes()
	names := make([]string, len(all))
	for i, v := range all {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
		names[i] = string(v)
	}
	return "", fmt.Errorf("%w: type must be one of %s", ErrInvalidMaterial, strings.Join(names, ", "))
}

// Validate checks in and returns the normalised material it describes.
// Returns an error wrapping ErrInvalidMaterial on the first failure found.
func (in CreateInput) Validate() (*Material, error) {
	m := &Material{
		Title:      strings.TrimSpace(in.Title),
		Subject:    strings.TrimSpace(in.Subject),
		Department: strings.TrimSpace(in.Department),
		FileURL:    strings.TrimSpace(in.FileURL),
		FileSize:   in.FileSize,
		Year:       in.Year,
	}

	if m.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidMaterial)
	}
	if len(m.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidMaterial, maxTitleLength)
	}
	if m.Subject == "" || len(m.Subject) > maxFieldLength {
		return nil, fmt.Errorf("%w: subject is required (max %d characters)", ErrInvalidMaterial, maxFieldLength)
	}
	if m.Department == "" || len(m.Department) > maxFieldLength {
		return nil, fmt.Errorf("%w: department is required (max %d characters)", ErrInvalidMaterial, maxFieldLength)
	}

	t, err := ParseType(in.Type)
	if err != nil {
		return nil, err
	}
	m.Type = t

	if err := validateURL(m.FileURL); err != nil {
		return nil, err
	}
	if m.FileSize < 0 || m.FileSize > MaxFileSize {
		return nil, fmt.Errorf("%w: fileSize must be between 0 and %d bytes", ErrInvalidMaterial, MaxFileSize)
	}
	if m.Year < 0 {
		return nil, fmt.Errorf("%w: year must not be negative", ErrInvalidMaterial)
	}

	return m, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: fileUrl is required", ErrInvalidMaterial)
	}
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: fileUrl exceeds %d characters", ErrInvalidMaterial, maxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: fileUrl is not a valid URL", ErrInvalidMaterial)
	}
	// Relative paths are allowed for files served by the portal itself.
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: fileUrl must use http or https", ErrInvalidMaterial)
	}
	return nil
}
