// Package migrations embeds the local-store SQL migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
