// Package repomanager vends repository implementations bound to a database
// handle, so services can run repositories against either *sql.DB or an open
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avdeev/authgate/internal/dbx"
	"github.com/avdeev/authgate/internal/server/repositories/users"
)

// RepositoryManager constructs repositories bound to the provided DBTX and
// exposes a schema migration hook.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
