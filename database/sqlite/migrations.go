package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/snapsi"
)

// quoteIdentifier quotes a table or index name that IsValidTableName accepted.
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
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

func Migrate(ctx context.Context, db *sql.DB, tables snapsi.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables snapsi.Tables) error {
	if err := tables.Validate(); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}

	migrations := getTableMigrations(tables)
	for i := len(migrations) - 1; i >= 0; i-- {
		if err := migrations[i].Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migrations[i].TableName, err)
		}
	}

	return nil
}

// Timestamps are stored as fixed-width UTC text so that string order is time order.
func createFoldersTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexList := quoteIdentifier(fmt.Sprintf("idx_%s_list", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				name TEXT NOT NULL,
				password_hash TEXT,
				image_count INTEGER NOT NULL DEFAULT 0 CHECK (image_count >= 0),
				created_at TEXT NOT NULL,
				last_upload_at TEXT
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id)`, indexList, quotedTable)
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index list: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}
