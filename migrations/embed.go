// Package migrations embeds the goose SQL migrations for the core database.
package migrations

import "embed"

// Core holds the core database migrations under "core/".
//
//go:embed core/*.sql
var Core embed.FS

// CoreDir is the directory inside Core that goose reads from.
const CoreDir = "core"
