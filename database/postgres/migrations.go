package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/snapsi"
)

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations(tables snapsi.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Folders,
			Up:        createFoldersTable(tables.Folders),
			Down:      dropTable(tables.Folders),
		},
	}
}

// Migrate creates every table the service needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables snapsi.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

// DropTables removes every table created by Migrate, in reverse order.
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables snapsi.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	migrations := getTableMigrations(tables)
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}

	return nil
}

func createFoldersTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		indexList := pgx.Identifier{fmt.Sprintf("idx_%s_list", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				password_hash TEXT,
				image_count INTEGER NOT NULL DEFAULT 0 CHECK (image_count >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				last_upload_at TIMESTAMPTZ
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (created_at, id);
		`,
			quotedTable,
			indexList, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create folders table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{tableName}.Sanitize())
		_, err := pool.Exec(ctx, sql)
		return err
	}
}
