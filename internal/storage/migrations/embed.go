// Package migrations applies the embedded schema files: Postgres holds
// swap events, liquidity events and pool states, ClickHouse holds the
// market snapshot history.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// sqlFiles lists the .sql files in dir, sorted so numbered migrations
// apply in order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
