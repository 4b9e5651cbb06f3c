package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/postgres"
	"github.com/sagarc03/snapsi/database/sqlite"
)

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	// Migrate creates missing tables. It is idempotent.
	Migrate(ctx context.Context) error
	// Validate checks that existing tables have the expected columns.
	Validate(ctx context.Context) error
	GetRepo() snapsi.FolderRepo
	Close() error
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type is "sqlite" or "postgres".
	Type   string        `mapstructure:"type" yaml:"type" validate:"required,oneof=sqlite postgres"`
	DSN    string        `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	Tables snapsi.Tables `mapstructure:"tables" yaml:"tables"`
}

// Connect opens the configured backend without touching its schema.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	var (
		db  Database
		err error
	)

	switch cfg.Type {
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}

	if err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects, migrates and validates the backend in one step.
func Open(ctx context.Context, cfg Config) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Type, err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.Type, err)
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate %s schema: %w", cfg.Type, err)
	}

	return db, nil
}
