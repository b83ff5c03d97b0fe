package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "solana-wallet-ledger/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database when missing, then
// applies the embedded price and score-history tables. The returned
// connection targets that database and is owned by the caller.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	// Fail on a bad file before touching the server.
	scripts, err := loadScripts(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	// The driver has no multi-statement Exec.
	for _, s := range scripts {
		for i, stmt := range s.stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s (statement %d): %w", s.name, i+1, err)
			}
		}
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()
	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q has no database", u.Redacted())
	}
	return db, nil
}
