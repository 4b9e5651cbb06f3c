package database_test

import (
	"context"
	"testing"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(tableName string) database.Config {
	return database.Config{
		Type:   "sqlite",
		DSN:    ":memory:",
		Tables: snapsi.Tables{Folders: tableName},
	}
}

func TestConnect_SQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig("connect_test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, db.Ping(ctx))
	assert.Error(t, db.Validate(ctx), "validate should fail without tables")
}

func TestConnect_UnsupportedType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, typ := range []string{"", "mysql"} {
		cfg := newTestConfig("folders")
		cfg.Type = typ

		_, err := database.Connect(ctx, cfg)
		assert.ErrorContains(t, err, "unsupported database type")
	}
}

func TestConnect_InvalidTable(t *testing.T) {
	t.Parallel()

	_, err := database.Connect(context.Background(), newTestConfig("Folders; DROP"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Open(ctx, newTestConfig("open_test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "migrate should be idempotent")

	repo := db.GetRepo()
	folder, err := repo.Create(ctx, snapsi.NewFolder{Name: "opened"})
	require.NoError(t, err)

	result, err := repo.List(ctx, snapsi.ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, folder.ID, result.Items[0].ID)
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := database.Connect(ctx, newTestConfig("close_test"))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx), "ping should fail after close")
}
