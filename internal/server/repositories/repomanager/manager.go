// Package repomanager wires repository constructors together so services can
// obtain repositories bound to either the shared *sql.DB or an open
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/credvault/internal/dbx"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/devices"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/loginattempts"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/credvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX and exposes a schema
// migration hook.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
	Devices(db dbx.DBTX) devices.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
