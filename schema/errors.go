package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the numeric kernels, the orchestrator and the stores.
var (
	// ErrUnsupportedMethod is returned for an unrecognized interpolation or integration method.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrLengthMismatch signals paired sequences of different lengths.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrNotFound is returned by stores when a channel or experiment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidChannel is returned when ingested data violates channel invariants.
	ErrInvalidChannel = errors.New("invalid channel data")

	// ErrAlreadyExists is returned by stores when an id is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// MethodError describes a rejected method name.
type MethodError struct {
	Kind   string // interpolation or integration
	Method string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("unsupported %s method %q", e.Kind, e.Method)
}

// Unwrap lets errors.Is match ErrUnsupportedMethod.
func (e *MethodError) Unwrap() error { return ErrUnsupportedMethod }

// LengthError describes two sequences that were expected to be the same length.
type LengthError struct {
	What        string
	Left, Right int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: lengths %d and %d differ", e.What, e.Left, e.Right)
}

// Unwrap lets errors.Is match ErrLengthMismatch.
func (e *LengthError) Unwrap() error { return ErrLengthMismatch }

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }
