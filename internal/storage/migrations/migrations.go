// Package migrations embeds the SQL migrations for the fixed schema.
// Per-account emotion log tables are created at runtime and are not
// managed here.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
