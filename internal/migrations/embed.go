// Package migrations holds the SQLite schema and the runner that applies it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
