// Package migrations embeds the goose SQL migrations so the server can apply
// them at startup and integration tests can apply them in TestMain.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
