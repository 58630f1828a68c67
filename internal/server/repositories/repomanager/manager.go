package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/apptracker/internal/dbx"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/users"
	"github.com/dmitrijs2005/apptracker/internal/server/repositories/verificationtokens"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	VerificationTokens(db dbx.DBTX) verificationtokens.Repository
}
