// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a create hit an existing document
	// (e.g. a like edge that is already present).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoSession indicates there is no authenticated user.
	ErrNoSession = errors.New("no session")

	// ErrMediaTooLarge indicates an attachment could not be brought under the
	// inline ceiling within the bounded compression attempts.
	ErrMediaTooLarge = errors.New("media too large")

	// ErrNoPayload indicates an attachment has neither local bytes nor a
	// remote location to upload from.
	ErrNoPayload = errors.New("no media payload")
)
