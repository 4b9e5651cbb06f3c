package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func uniqueTables(t *testing.T) snapsi.Tables {
	t.Helper()
	return snapsi.Tables{Folders: "folders_" + getRandomString(t)}
}

// setupTestRepo migrates a folders table in a fresh in-memory database.
func setupTestRepo(t *testing.T) snapsi.FolderRepo {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", uniqueTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.GetRepo()
}
