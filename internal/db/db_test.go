package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest/backend-go/internal/db/dbgen"
	"github.com/codequest/backend-go/internal/typeid"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func testPool(t *testing.T) *dbgen.Queries {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "schema must apply twice")

	return dbgen.New(pool)
}

func TestQueries_SnapshotVersionsIncrease(t *testing.T) {
	q := testPool(t)
	ctx := context.Background()

	b, err := q.CreateBoard(ctx, dbgen.CreateBoardParams{ID: typeid.NewBoardID(), Name: "system"})
	require.NoError(t, err)
	t.Cleanup(func() { q.DeleteBoard(context.Background(), b.ID) })

	for _, doc := range []string{`{"elements":[]}`, `{"elements":[],"canvasWidth":800}`} {
		_, err := q.CreateSnapshot(ctx, dbgen.CreateSnapshotParams{
			ID:       typeid.NewSnapshotID(),
			BoardID:  b.ID,
			Document: []byte(doc),
		})
		require.NoError(t, err)
	}

	latest, err := q.GetLatestSnapshot(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), latest.Version)
	assert.JSONEq(t, `{"elements":[],"canvasWidth":800}`, string(latest.Document))

	n, err := q.DeleteBoard(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = q.GetLatestSnapshot(ctx, b.ID)
	assert.Error(t, err)
}

func TestNewPool_RejectsBadURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://nope")
	assert.ErrorContains(t, err, "parse database url")
}
