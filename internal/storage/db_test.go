package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestNew_FileSystemDatabase checks that a file-backed database survives reopening.
func TestNew_FileSystemDatabase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "unibot.db")

	db, err := New(ctx, dbPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, db.Path())

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file not created")

	vec := []float32{0.6, 0.8}
	require.NoError(t, db.PutEmbeddings(ctx, "local", 2, map[string][]float32{"h1": vec}))
	require.NoError(t, db.Close())

	reopened, err := New(ctx, dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.GetEmbeddings(ctx, "local", 2, []string{"h1"})
	require.NoError(t, err)
	assert.Equal(t, vec, got["h1"])
}

func TestPing(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestEmbeddings_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	vectors := map[string][]float32{
		"a": {1, 0, 0},
		"b": {0, -0.5, 0.25},
	}
	require.NoError(t, db.PutEmbeddings(ctx, "gemini/embedding", 3, vectors))

	got, err := db.GetEmbeddings(ctx, "gemini/embedding", 3, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, vectors["a"], got["a"])
	assert.Equal(t, vectors["b"], got["b"])

	// Other embedding spaces never see these rows.
	other, err := db.GetEmbeddings(ctx, "gemini/embedding", 768, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, other)
	other, err = db.GetEmbeddings(ctx, "openai/small", 3, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, other)

	n, err := db.CountEmbeddings(ctx, "gemini/embedding", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEmbeddings_Upsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, db.PutEmbeddings(ctx, "local", 2, map[string][]float32{"a": {1, 0}}))
	require.NoError(t, db.PutEmbeddings(ctx, "local", 2, map[string][]float32{"a": {0, 1}}))

	got, err := db.GetEmbeddings(ctx, "local", 2, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got["a"])

	n, err := db.CountEmbeddings(ctx, "local", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbeddings_DimensionMismatchRejected(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	err := db.PutEmbeddings(context.Background(), "local", 3, map[string][]float32{"a": {1, 0}})
	assert.Error(t, err)
}

func TestEmbeddings_ManyHashes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	const total = maxHashesPerQuery*2 + 17
	vectors := make(map[string][]float32, total)
	hashes := make([]string, 0, total)
	for i := range total {
		h := fmt.Sprintf("h%04d", i)
		vectors[h] = []float32{float32(i)}
		hashes = append(hashes, h)
	}
	require.NoError(t, db.PutEmbeddings(ctx, "local", 1, vectors))

	got, err := db.GetEmbeddings(ctx, "local", 1, hashes)
	require.NoError(t, err)
	assert.Len(t, got, total)
	assert.Equal(t, []float32{float32(total - 1)}, got[hashes[total-1]])
}

func TestQueryLog_InsertAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	rows := []QueryLogRow{
		{TimeISO: "2026-03-01T10:00:00Z", SessionID: "s1", Query: "hello", Intent: "greeting", Score: 1},
		{TimeISO: "2026-03-01T10:00:05Z", SessionID: "s1", Query: "when is the exam", Intent: "semantic_fallback", Score: 0.71},
		{TimeISO: "2026-03-01T10:00:09Z", SessionID: "s1", Query: "when is the exam", Score: 0.71, Feedback: "helpful"},
	}
	require.NoError(t, db.InsertQueryLogs(ctx, rows))

	n, err := db.CountQueryLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recent, err := db.RecentQueryLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "helpful", recent[0].Feedback)
	assert.Empty(t, recent[0].Intent)
	assert.Equal(t, "semantic_fallback", recent[1].Intent)
	assert.InDelta(t, 0.71, recent[1].Score, 1e-9)
	assert.Greater(t, recent[0].ID, recent[1].ID)
}

func TestQueryLog_EmptyInsert(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	require.NoError(t, db.InsertQueryLogs(context.Background(), nil))
	n, err := db.CountQueryLogs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
