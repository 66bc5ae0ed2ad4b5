package client

import (
	"context"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
)

// CreateRequest is the body of a remote create. ClientID is the local record
// id; servers that honour it return the first record on a replay.
type CreateRequest struct {
	Data     string `json:"data"`
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`
}

// RemoteStore is the remote record collection the sync engine reconciles
// against. Implementations do not retry.
type RemoteStore interface {
	// List returns the remote view. Fails with ErrNetwork.
	List(ctx context.Context) ([]models.RemoteRecord, error)
	// Create stores a record and returns its remote id. Fails with ErrNetwork
	// or *RejectedError.
	Create(ctx context.Context, req CreateRequest) (string, error)
	// Delete removes a record. An already absent record is a success.
	Delete(ctx context.Context, remoteID string) error
}

// Pinger is implemented by remote stores that can report reachability cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}
