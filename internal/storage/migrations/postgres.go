package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a SQL statement. *postgres.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RunPostgresMigrations applies all embedded SQL files in lexical order,
// one statement at a time. Migrations are expected to be idempotent.
func RunPostgresMigrations(ctx context.Context, pool Execer) error {
	scripts, err := loadScripts(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, s := range scripts {
		for i, stmt := range s.stmts {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s (statement %d): %w", s.name, i+1, err)
			}
		}
	}
	return nil
}
