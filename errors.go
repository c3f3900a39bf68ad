package duckdb

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorType represents different classes of vector layer errors.
type ErrorType int

const (
	// ErrGeneric is a generic error.
	ErrGeneric ErrorType = iota
	// ErrInvalidArgument is a violated caller precondition.
	ErrInvalidArgument
	// ErrOutOfBounds is a write past a declared capacity or reserved length.
	ErrOutOfBounds
	// ErrNativeAllocation is an engine allocation that returned the null handle.
	ErrNativeAllocation
	// ErrUseAfterRelease is an operation on a handle that was already closed.
	ErrUseAfterRelease
	// ErrType is a logical type mismatch.
	ErrType
)

var errorTypeNames = [...]string{
	ErrGeneric:          "generic",
	ErrInvalidArgument:  "invalid argument",
	ErrOutOfBounds:      "out of bounds",
	ErrNativeAllocation: "native allocation failure",
	ErrUseAfterRelease:  "use after release",
	ErrType:             "type mismatch",
}

func (t ErrorType) String() string {
	if int(t) < len(errorTypeNames) {
		return errorTypeNames[t]
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// Error is a vector layer error.
type Error struct {
	Type    ErrorType
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("duckdb: %s", e.Message)
}

// NewError creates a new Error.
func NewError(typ ErrorType, message string) *Error {
	return &Error{
		Type:    typ,
		Message: message,
	}
}

// newErrorf builds an Error annotated with the caller's stack.
func newErrorf(typ ErrorType, format string, args ...any) error {
	return errors.WithStackDepth(NewError(typ, fmt.Sprintf(format, args...)), 1)
}

// IsError checks if an error, or any error it wraps, is of a specific type.
func IsError(err error, typ ErrorType) bool {
	var duckErr *Error
	if !errors.As(err, &duckErr) {
		return false
	}
	return duckErr.Type == typ
}
