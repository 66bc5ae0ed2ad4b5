// Package records is the device-local, durable store of captured codes.
//
// # Overview
//
// Repository is the contract used by the sync engine and the capture
// controller; SQLiteRepository implements it on top of the migrated SQLite
// database opened by client.InitDatabase.
//
// # State transitions
//
// Every mutating call is a single SQL statement, so a crash never leaves a
// partially written row. Transitions are compare-and-set on sync_state:
//
//	pending        -> synced          MarkSynced
//	pending|synced -> delete_pending  MarkDeletePending
//	any            -> (row removed)   Purge
//
// A call whose precondition no longer holds (unknown id, state already moved
// on) is a no-op and returns nil, so concurrent sync passes can replay them.
//
// # Reads
//
// ListVisible hides delete_pending rows and is ordered newest first for
// display. ListByState is ordered oldest first for sync passes. Get returns
// rows in any state.
package records
