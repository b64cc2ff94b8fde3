package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"solana-pool-monitor/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded Postgres migration in
// lexical order. Migrations use IF NOT EXISTS throughout, so reruns on
// an already migrated database are no-ops.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
