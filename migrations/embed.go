// Package migrations holds the goose SQL migrations for the activity log
// store.
package migrations

import "embed"

// FS contains every migration file.
//
//go:embed *.sql
var FS embed.FS
