// Package errs contains the error taxonomy shared by the store and service layers.
package errs

import "errors"

// Kinds. Every *Error carries exactly one of these and matches it through errors.Is.
var (
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation")

	// ErrNotFound indicates the referenced entity is absent or already soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation detected by a service.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized indicates the caller does not own or may not act on the entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDependency indicates a tolerated collaborator failure (metadata probe).
	ErrDependency = errors.New("dependency failure")

	// ErrDeletionFailed indicates a cascade could not complete.
	ErrDeletionFailed = errors.New("deletion failed")

	// ErrTransactionAborted indicates a unit of work was rolled back.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrAlreadyExists indicates a unique constraint violation raised by the store.
	ErrAlreadyExists = errors.New("already exists")
)
