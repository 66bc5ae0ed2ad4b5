// Package services holds the server's use cases on top of the repositories.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/scankeeper/internal/common"
	"github.com/dmitrijs2005/scankeeper/internal/dbx"
	"github.com/dmitrijs2005/scankeeper/internal/server/models"
	"github.com/dmitrijs2005/scankeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const defaultType = "qr"

type CodeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCodeService(db *sql.DB, m repomanager.RepositoryManager) *CodeService {
	return &CodeService{db: db, repomanager: m}
}

func (s *CodeService) List(ctx context.Context) ([]models.Code, error) {
	return s.repomanager.Codes(s.db).List(ctx)
}

// Create stores a scanned code. created is false when clientID matched an
// earlier request, in which case that request's code is returned. The insert
// and the read-back of a replay share one transaction.
func (s *CodeService) Create(ctx context.Context, data, typ, clientID string) (code *models.Code, created bool, err error) {
	if strings.TrimSpace(data) == "" {
		return nil, false, fmt.Errorf("%w: data is required", common.ErrInvalidInput)
	}
	typ = strings.ToLower(strings.TrimSpace(typ))
	if typ == "" {
		typ = defaultType
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		code, created, err = s.repomanager.Codes(tx).Create(ctx, &models.Code{
			Data:     data,
			Type:     typ,
			ClientID: strings.TrimSpace(clientID),
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return code, created, nil
}

// Delete removes a code. Ids that cannot exist are reported as not found.
func (s *CodeService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrNotFound
	}
	return s.repomanager.Codes(s.db).Delete(ctx, id)
}
