package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the API adapter and the application services.
// ErrNotFound and ErrUnprocessable drive the resolver's fallback logic and
// are not user-facing; ErrUnauthorized is the authentication-expired signal.
var (
	ErrNotFound      = errors.New("thena: not found")
	ErrUnprocessable = errors.New("thena: unprocessable")
	ErrUnauthorized  = errors.New("thena: unauthorized")
	ErrForbidden     = errors.New("thena: forbidden")
)

// NotFoundish reports whether err should be treated as "confirmed absent"
// rather than a failure (404/422 on directory lookups).
func NotFoundish(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnprocessable)
}

// ValidationError is a local, field-level rejection. It never reaches the
// network and is rendered inline next to the offending field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
