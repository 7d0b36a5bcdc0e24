package migrations

import "embed"

// FS holds the SQL migrations applied by the SQLite backend.
//
//go:embed *.sql
var FS embed.FS
