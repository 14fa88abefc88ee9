// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// FS holds the versioned NNNN_name.sql files.
//
//go:embed *.sql
var FS embed.FS
