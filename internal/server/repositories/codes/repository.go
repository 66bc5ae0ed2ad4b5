// Package codes stores scanned codes in PostgreSQL.
package codes

import (
	"context"

	"github.com/dmitrijs2005/scankeeper/internal/server/models"
)

type Repository interface {
	// List returns every code, oldest first.
	List(ctx context.Context) ([]models.Code, error)
	// Create stores code. When code.ClientID is already known the existing
	// row is returned with created set to false.
	Create(ctx context.Context, code *models.Code) (stored *models.Code, created bool, err error)
	// Delete removes a code or returns common.ErrNotFound.
	Delete(ctx context.Context, id string) error
}
