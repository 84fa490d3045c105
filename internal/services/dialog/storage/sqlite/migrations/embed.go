// Package migrations embeds the SQLite schema for dialog storage.
package migrations

import "embed"

// FS contains embedded SQLite migrations for dialog storage.
//
//go:embed *.sql
var FS embed.FS
