package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTag is wrapped by MetadataError when a required object tag is absent.
	ErrMissingTag = errors.New("missing required tag")

	// ErrInvalidTag is wrapped by MetadataError when an optional tag cannot be used.
	ErrInvalidTag = errors.New("invalid tag value")
)

// RowError is a malformed or unstorable data line. It ends parsing of the
// file and its Message is stored verbatim as the ValidationFailure message.
type RowError struct {
	Row     int
	Field   string
	Message string
	Err     error
}

func newRowError(row int, cause error) *RowError {
	return &RowError{
		Row:     row,
		Field:   RowExceptionField,
		Message: fmt.Sprintf("Failed to store IDP fraud event: %v (line %d)", cause, row),
		Err:     cause,
	}
}

func (e *RowError) Error() string { return e.Message }

func (e *RowError) Unwrap() error { return e.Err }

// Failure converts the error into the record stored for operators.
func (e *RowError) Failure() ValidationFailure {
	return ValidationFailure{Row: e.Row, Field: e.Field, Message: e.Message}
}

// MetadataError means the object cannot be attributed to an owner or its
// import options are unusable. Nothing is recorded and the object stays put.
type MetadataError struct {
	Bucket string
	Key    string
	Tag    string
	Err    error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("object %s/%s: tag %q: %v", e.Bucket, e.Key, e.Tag, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// PersistenceError is a unit-of-work failure. The import did not reach a
// durable outcome and the object was not relocated, so a retry is safe.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence fault during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RelocationError is a move failure after the database outcome is durable.
type RelocationError struct {
	Bucket      string
	Key         string
	Destination string
	Err         error
}

func (e *RelocationError) Error() string {
	return fmt.Sprintf("relocating %s/%s to %s: %v", e.Bucket, e.Key, e.Destination, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }
