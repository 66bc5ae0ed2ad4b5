package models

import (
	"strings"
	"time"
)

// SyncState tracks a record's relationship to the remote store.
type SyncState string

const (
	// StatePending: captured locally, creation not yet acknowledged remotely.
	StatePending SyncState = "pending"
	// StateSynced: the remote store acknowledged creation.
	StateSynced SyncState = "synced"
	// StateDeletePending: deleted by the user, remote delete not yet acknowledged.
	// Hidden from every display read.
	StateDeletePending SyncState = "delete_pending"
)

func (s SyncState) Valid() bool {
	switch s {
	case StatePending, StateSynced, StateDeletePending:
		return true
	}
	return false
}

// DefaultSymbology is used when the scanner does not report a format.
const DefaultSymbology = "qr"

// NormalizeSymbology lower-cases the scanner tag and falls back to
// DefaultSymbology for an empty one.
func NormalizeSymbology(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSymbology
	}
	return s
}

// Record is one scanned-code capture persisted on the device.
// Payload, Symbology and CreatedAt never change after insert.
type Record struct {
	// ID is generated on the device at capture time and doubles as the
	// idempotency key for the remote create.
	ID string
	// RemoteID is the identifier assigned by the remote store; empty until synced.
	RemoteID  string
	Payload   string
	Symbology string
	// CreatedAt orders records for display and for sync passes. It is never
	// used to resolve conflicts.
	CreatedAt time.Time
	SyncState SyncState
	// Attempts counts remote calls that failed for this record.
	Attempts int
	// LastError is the message of the most recent failed remote call.
	LastError string
	// Rejected is set when the remote store refused the record permanently.
	// Rejected records stay pending but are skipped by automatic sync passes.
	Rejected bool
}

func (r Record) Visible() bool {
	return r.SyncState != StateDeletePending
}

// RemoteRecord is one row of the remote store's view.
type RemoteRecord struct {
	ID       string `json:"id"`
	Data     string `json:"data"`
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
}
