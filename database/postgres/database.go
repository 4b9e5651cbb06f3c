package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/snapsi"
)

type database struct {
	pool   *pgxpool.Pool
	tables snapsi.Tables
}

// Connect opens a pgx pool for dsn. Nothing is created until Migrate is called.
func Connect(ctx context.Context, dsn string, tables snapsi.Tables) (*database, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &database{pool: pool, tables: tables}, nil
}

func (d *database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.pool, d.tables)
}

func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// GetRepo returns the folder repository backed by this pool.
func (d *database) GetRepo() snapsi.FolderRepo {
	return &Repo{pool: d.pool, tableName: d.tables.Folders}
}

func (d *database) Close() error {
	d.pool.Close()
	return nil
}
