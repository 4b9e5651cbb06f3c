package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	public, err := repo.Create(ctx, snapsi.NewFolder{Name: "Vacation 2024"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, public.ID)
	assert.False(t, public.HasPassword())
	assert.Zero(t, public.ImageCount)
	assert.Nil(t, public.LastUploadAt)

	got, err := repo.Get(ctx, public.ID)
	require.NoError(t, err)
	assert.Equal(t, public.ID, got.ID)
	assert.Equal(t, "Vacation 2024", got.Name)
	assert.True(t, public.CreatedAt.Equal(got.CreatedAt))

	private, err := repo.Create(ctx, snapsi.NewFolder{Name: "Private", PasswordHash: "$2a$10$hash"})
	require.NoError(t, err)

	got, err = repo.Get(ctx, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, snapsi.ErrNotFound)
}

func TestRepo_RecordUploadAndDeletion(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	folder, err := repo.Create(ctx, snapsi.NewFolder{Name: "counts"})
	require.NoError(t, err)

	at := time.Date(2024, 6, 10, 6, 13, 20, 123000000, time.UTC)
	require.NoError(t, repo.RecordUpload(ctx, folder.ID, at))
	require.NoError(t, repo.RecordUpload(ctx, folder.ID, at.Add(time.Second)))

	got, err := repo.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ImageCount)
	require.NotNil(t, got.LastUploadAt)
	assert.True(t, at.Add(time.Second).Equal(*got.LastUploadAt))

	for range 3 {
		require.NoError(t, repo.RecordDeletion(ctx, folder.ID))
	}

	got, err = repo.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ImageCount, "count floors at zero")

	assert.ErrorIs(t, repo.RecordUpload(ctx, uuid.New(), at), snapsi.ErrNotFound)
	assert.ErrorIs(t, repo.RecordDeletion(ctx, uuid.New()), snapsi.ErrNotFound)
}

func TestRepo_RecordCompletion(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	folder, err := repo.Create(ctx, snapsi.NewFolder{Name: "direct"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for range 3 {
		require.NoError(t, repo.RecordCompletion(ctx, folder.ID, 2, at))
	}

	got, err := repo.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ImageCount, "repeated completion does not add up")
	require.NotNil(t, got.LastUploadAt)
	assert.True(t, at.Equal(*got.LastUploadAt))

	require.NoError(t, repo.RecordCompletion(ctx, folder.ID, 3, at.Add(-time.Hour)))
	got, err = repo.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ImageCount)
	assert.True(t, at.Equal(*got.LastUploadAt), "last upload never moves back")

	assert.ErrorIs(t, repo.RecordCompletion(ctx, folder.ID, -1, at), snapsi.ErrInvalidInput)
	assert.ErrorIs(t, repo.RecordCompletion(ctx, uuid.New(), 1, at), snapsi.ErrNotFound)
}

func TestRepo_SetImageCount(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	folder, err := repo.Create(ctx, snapsi.NewFolder{Name: "recount"})
	require.NoError(t, err)

	require.NoError(t, repo.SetImageCount(ctx, folder.ID, 4))
	got, err := repo.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ImageCount)

	assert.ErrorIs(t, repo.SetImageCount(ctx, folder.ID, -2), snapsi.ErrInvalidInput)
	assert.ErrorIs(t, repo.SetImageCount(ctx, uuid.New(), 1), snapsi.ErrNotFound)
}

func TestRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	var order []uuid.UUID
	for i := range 5 {
		f, err := repo.Create(ctx, snapsi.NewFolder{Name: fmt.Sprintf("folder %d", i)})
		require.NoError(t, err)
		order = append(order, f.ID)
	}

	t.Run("pages in creation order", func(t *testing.T) {
		var seen []uuid.UUID
		cursor := ""

		for {
			result, err := repo.List(ctx, snapsi.ListQuery{Limit: 2, Cursor: cursor})
			require.NoError(t, err)
			assert.LessOrEqual(t, len(result.Items), 2)

			for _, f := range result.Items {
				seen = append(seen, f.ID)
			}

			if result.NextCursor == "" {
				break
			}
			cursor = result.NextCursor
		}

		assert.ElementsMatch(t, order, seen)
		assert.Len(t, seen, 5)
	})

	t.Run("exact page has no cursor", func(t *testing.T) {
		result, err := repo.List(ctx, snapsi.ListQuery{Limit: 5})
		require.NoError(t, err)
		assert.Len(t, result.Items, 5)
		assert.Empty(t, result.NextCursor)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := repo.List(ctx, snapsi.ListQuery{Limit: 2, Cursor: "%%%"})
		assert.ErrorIs(t, err, snapsi.ErrInvalidInput)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := repo.List(ctx, snapsi.ListQuery{Limit: 0})
		assert.ErrorIs(t, err, snapsi.ErrInvalidInput)
	})
}

func TestMigrateAndValidate(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	tables := uniqueTables(t)

	assert.ErrorContains(t, sqlite.ValidateSchema(ctx, db, tables), "does not exist")

	require.NoError(t, sqlite.Migrate(ctx, db, tables))
	require.NoError(t, sqlite.Migrate(ctx, db, tables), "migrate is idempotent")
	assert.NoError(t, sqlite.ValidateSchema(ctx, db, tables))

	require.NoError(t, sqlite.DropTables(ctx, db, tables))
	assert.Error(t, sqlite.ValidateSchema(ctx, db, tables))

	broken := uniqueTables(t)
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE "%s" (id TEXT NOT NULL PRIMARY KEY, name TEXT)`, broken.Folders))
	require.NoError(t, err)

	err = sqlite.ValidateSchema(ctx, db, broken)
	assert.ErrorContains(t, err, "missing columns")
	assert.ErrorContains(t, err, "name: expected nullable=false")

	assert.Error(t, sqlite.Migrate(ctx, db, snapsi.Tables{Folders: "1bad"}))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", uniqueTables(t))
	require.NoError(t, err)

	require.NoError(t, db.Ping(ctx))
	assert.Error(t, db.Validate(ctx))
	require.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(ctx), "ping after close")

	_, err = sqlite.Connect(ctx, ":memory:", snapsi.Tables{})
	assert.Error(t, err)
}
