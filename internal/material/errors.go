package material

import "errors"

var (
	// ErrMaterialNotFound is returned when a material ID does not exist.
	ErrMaterialNotFound = errors.New("material not found")

	// ErrInvalidMaterial is returned when a material fails validation.
	ErrInvalidMaterial = errors.New("invalid material")
)
