// Package migrations embeds the local store's goose migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
