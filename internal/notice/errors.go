package notice

import "errors"

// ErrInvalidNotice is returned when a notice fails validation.
var ErrInvalidNotice = errors.New("invalid notice")
