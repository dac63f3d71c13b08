// Package common defines shared constants and sentinel errors used across
// the journal core and the reference server. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Remote persistence errors. ErrVersionConflict marks a precondition
	// mismatch between a local intent and the server's current version;
	// it is never retried automatically.
	ErrVersionConflict = errors.New("version conflict")

	// Validation errors are permanent: the payload is malformed and no
	// amount of retrying will make it apply.
	ErrorValidation = errors.New("validation error")

	// Conflict-resolution errors.
	ErrorNoConflict = errors.New("record has no open conflict")
)
