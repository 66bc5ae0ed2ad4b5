// Package common defines sentinel errors shared by the client and server
// layers. Callers match them with errors.Is.
package common

import "errors"

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a failure of local durable storage: the database
	// could not be opened, read or written.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidInput is returned for payloads rejected before they reach storage.
	ErrInvalidInput = errors.New("invalid input")
)
