package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/snapsi"

	_ "modernc.org/sqlite" // SQLite driver
)

type database struct {
	db     *sql.DB
	tables snapsi.Tables
}

// Connect opens the SQLite database at dsn. Nothing is created until Migrate is called.
func Connect(ctx context.Context, dsn string, tables snapsi.Tables) (*database, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return &database{db: db, tables: tables}, nil
}

func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the folder repository backed by this database.
func (d *database) GetRepo() snapsi.FolderRepo {
	return &Repo{db: d.db, tableName: quoteIdentifier(d.tables.Folders), now: nowUTC}
}

func (d *database) Close() error {
	return d.db.Close()
}
