// Package migrations embeds the SQL migration files so the migrate
// binary can run without shipping the files alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
