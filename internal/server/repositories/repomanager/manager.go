package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/scankeeper/internal/dbx"
	"github.com/dmitrijs2005/scankeeper/internal/server/repositories/codes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Codes(db dbx.DBTX) codes.Repository
}
