package api

import "errors"

var (
	// ErrUnauthorized means the credential token is missing, expired, or
	// revoked. It is fatal to the whole run.
	ErrUnauthorized = errors.New("catalog rejected the credential token")

	// ErrNotFound means the catalog has no entity for the requested id. It
	// fails the affected item only.
	ErrNotFound = errors.New("catalog entity not found")

	// ErrTransient marks server or network faults worth retrying with
	// bounded attempts.
	ErrTransient = errors.New("transient catalog fault")
)
