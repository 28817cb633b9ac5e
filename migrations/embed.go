// Package migrations embeds the goose migrations of both stores, one
// directory per store and dialect.
package migrations

import "embed"

//go:embed identity/postgres/*.sql identity/sqlite/*.sql ledger/postgres/*.sql ledger/sqlite/*.sql
var FS embed.FS

// Directories within FS.
const (
	IdentityPostgres = "identity/postgres"
	IdentitySQLite   = "identity/sqlite"
	LedgerPostgres   = "ledger/postgres"
	LedgerSQLite     = "ledger/sqlite"
)
