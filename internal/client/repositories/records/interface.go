package records

import (
	"context"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
)

// Repository is the local record store.
type Repository interface {
	// Insert allocates an id, stores the record as pending and returns it once
	// the write is durable.
	Insert(ctx context.Context, payload, symbology string) (*models.Record, error)
	// ListVisible returns every record not pending deletion, newest first.
	ListVisible(ctx context.Context) ([]models.Record, error)
	// ListByState returns records in the given state, oldest first.
	ListByState(ctx context.Context, state models.SyncState) ([]models.Record, error)
	// Get returns a record in any state or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Record, error)

	MarkSynced(ctx context.Context, id, remoteID string) error
	MarkDeletePending(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) error

	// RecordFailure bumps the attempt counter and stores msg. rejected flags a
	// permanent remote refusal; it is never cleared by a later failure.
	RecordFailure(ctx context.Context, id, msg string, rejected bool) error
	// ClearRejected makes a rejected pending record eligible for sync again.
	ClearRejected(ctx context.Context, id string) error
}
