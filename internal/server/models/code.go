// Package models defines server-side data models persisted in the database.
package models

import "time"

// Code is one stored scan as served on the wire.
type Code struct {
	ID   string `json:"id"`
	Data string `json:"data"`
	Type string `json:"type"`
	// ClientID is the idempotency key supplied by the capturing device.
	ClientID  string    `json:"client_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
