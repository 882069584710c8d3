package db

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations is the CBDB schema migration set, rooted at the migrations
// directory so goose sees bare file names.
var Migrations fs.FS = mustSub(migrationFiles, "migrations")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}

	return sub
}

// SchemaVersion returns the number of SQL migration files, which equals the
// schema version this binary expects. Reported by the health endpoint.
func SchemaVersion() int {
	entries, err := fs.ReadDir(Migrations, ".")
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			count++
		}
	}

	return count
}
