// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Path is the root of the embedded migration files.
const Path = "."
