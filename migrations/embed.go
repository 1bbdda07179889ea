// Package migrations embeds the SQL migration files so binaries carry their
// own schema.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var files embed.FS

// FS returns the migration files rooted at this directory.
func FS() fs.FS { return files }
