// Package migrations embeds the schema for the saved-calculation store.
package migrations

import "embed"

// FS holds one directory of numbered SQL files per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
