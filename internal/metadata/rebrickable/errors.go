package rebrickable

import (
	"errors"
	"fmt"
)

// Sentinel errors for Rebrickable API operations.
var (
	ErrNotFound     = errors.New("rebrickable: not found")
	ErrRateLimited  = errors.New("rebrickable: rate limited by server")
	ErrUnauthorized = errors.New("rebrickable: invalid or missing API key")
	ErrBadRequest   = errors.New("rebrickable: bad request")
	ErrServer       = errors.New("rebrickable: server error")

	// ErrUnavailable wraps transport failures and an open circuit breaker.
	ErrUnavailable = errors.New("rebrickable: unavailable")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op        string // Operation: "getSet", "getSetParts", "getSetMinifigs", "getMinifigParts"
	SetNumber string // Set or minifig number, if applicable
	Err       error
}

func (e *Error) Error() string {
	if e.SetNumber != "" {
		return fmt.Sprintf("rebrickable %s [%s]: %v", e.Op, e.SetNumber, e.Err)
	}
	return fmt.Sprintf("rebrickable %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, setNumber string, err error) error {
	return &Error{
		Op:        op,
		SetNumber: setNumber,
		Err:       err,
	}
}
