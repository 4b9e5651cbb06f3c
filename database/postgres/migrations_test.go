package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedFolderColumns = map[string]string{
	"id":             "uuid",
	"name":           "text",
	"password_hash":  "text",
	"image_count":    "integer",
	"created_at":     "timestamp with time zone",
	"last_upload_at": "timestamp with time zone",
}

func tableExists(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) bool {
	t.Helper()

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, name).Scan(&exists)
	require.NoError(t, err, "check table %s", name)
	return exists
}

func TestMigrate(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	t.Run("creates the folders table", func(t *testing.T) {
		tables := uniqueTables(t)
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		assert.True(t, tableExists(t, ctx, pool, tables.Folders))

		for col, want := range expectedFolderColumns {
			var dataType string
			err := pool.QueryRow(ctx, `
				SELECT data_type FROM information_schema.columns
				WHERE table_name = $1 AND column_name = $2
			`, tables.Folders, col).Scan(&dataType)
			require.NoError(t, err, "column %s", col)
			assert.Equal(t, want, dataType, "column %s", col)
		}

		var hasIndex bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT FROM pg_indexes WHERE tablename = $1 AND indexname = $2)
		`, tables.Folders, fmt.Sprintf("idx_%s_list", tables.Folders)).Scan(&hasIndex)
		require.NoError(t, err)
		assert.True(t, hasIndex)
	})

	t.Run("idempotent", func(t *testing.T) {
		tables := uniqueTables(t)
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		assert.NoError(t, postgres.Migrate(ctx, pool, tables))
	})

	t.Run("rejects invalid table names", func(t *testing.T) {
		err := postgres.Migrate(ctx, pool, snapsi.Tables{Folders: "Bad-Name"})
		assert.Error(t, err)
	})
}

func TestDropTables(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := uniqueTables(t)

	require.NoError(t, postgres.Migrate(ctx, pool, tables))
	require.NoError(t, postgres.DropTables(ctx, pool, tables))
	assert.False(t, tableExists(t, ctx, pool, tables.Folders))

	assert.NoError(t, postgres.DropTables(ctx, pool, tables), "dropping twice is a no-op")

	require.NoError(t, postgres.Migrate(ctx, pool, tables), "migrate after drop")
	assert.True(t, tableExists(t, ctx, pool, tables.Folders))
	require.NoError(t, postgres.DropTables(ctx, pool, tables))
}

func TestValidateSchema(t *testing.T) {
	pool := getSharedTestDatabase(t)
	ctx := context.Background()

	t.Run("missing table", func(t *testing.T) {
		err := postgres.ValidateSchema(ctx, pool, uniqueTables(t))
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("migrated table", func(t *testing.T) {
		tables := uniqueTables(t)
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		require.NoError(t, postgres.Migrate(ctx, pool, tables))
		assert.NoError(t, postgres.ValidateSchema(ctx, pool, tables))
	})

	t.Run("missing column", func(t *testing.T) {
		tables := uniqueTables(t)
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		_, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE %s (id UUID PRIMARY KEY, name TEXT NOT NULL)`, tables.Folders))
		require.NoError(t, err)

		err = postgres.ValidateSchema(ctx, pool, tables)
		assert.ErrorContains(t, err, "missing columns")
	})

	t.Run("wrong nullability", func(t *testing.T) {
		tables := uniqueTables(t)
		t.Cleanup(func() { _ = postgres.DropTables(ctx, pool, tables) })

		_, err := pool.Exec(ctx, fmt.Sprintf(`
			CREATE TABLE %s (
				id UUID PRIMARY KEY,
				name TEXT,
				password_hash TEXT,
				image_count INTEGER NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				last_upload_at TIMESTAMPTZ
			)`, tables.Folders))
		require.NoError(t, err)

		err = postgres.ValidateSchema(ctx, pool, tables)
		assert.ErrorContains(t, err, "name: expected nullable=false")
	})
}
