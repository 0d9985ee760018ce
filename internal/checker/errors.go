package checker

import (
	"errors"
	"fmt"
)

// Standard errors returned by checker clients. All checker failures
// are recoverable: the caller keeps its last good findings and reports
// the condition.
var (
	// ErrUnavailable indicates the service could not be reached.
	ErrUnavailable = errors.New("checker service unavailable")

	// ErrMalformedResponse indicates the service returned a payload
	// that could not be parsed.
	ErrMalformedResponse = errors.New("malformed checker response")

	// ErrLanguageInvalid indicates a language tag the checker cannot use.
	ErrLanguageInvalid = errors.New("invalid language tag")
)

// StatusError represents a non-2xx response from the checker service.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("checker returned status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("checker returned status %d", e.Code)
}
