package security

import (
	"errors"
	"fmt"
)

// Sentinel errors for typed error checking.
var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnauthorized = errors.New("authentication failed")
)

// ValidationError reports a rejected caller input. It is always surfaced
// verbatim to the caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation returns true if the error is an input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
