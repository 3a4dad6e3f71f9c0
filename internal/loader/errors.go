package loader

import (
	"errors"
	"fmt"
)

// ValidationError marks a unit file whose shape is wrong. It is counted as a
// failure and never aborts the load.
type ValidationError struct {
	Kind   string
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s unit %s: %s", e.Kind, e.Path, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(kind string, f File, format string, args ...any) error {
	return &ValidationError{Kind: kind, Path: f.Path, Reason: fmt.Sprintf(format, args...)}
}
