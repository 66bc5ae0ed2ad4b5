package services

import "errors"

var (
	// ErrInvalidCapture is returned for scan events that cannot become a
	// record, such as an empty payload. Nothing is stored.
	ErrInvalidCapture = errors.New("invalid capture")

	// ErrAwaitingResync is returned when pushing a record the remote store
	// rejected earlier. Resync clears the rejection and pushes again.
	ErrAwaitingResync = errors.New("record was rejected by the remote store and awaits manual resync")
)
