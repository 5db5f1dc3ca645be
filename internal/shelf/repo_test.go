package shelf

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/internal/catalog"
	"bookarr/pkg/database"
	"bookarr/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db), db
}

func seedUserAndBook(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES ('u1', 'reader', 'reader@example.com', 'x')
	`)
	require.NoError(t, err)

	cat := catalog.NewRepo(db)
	ctx := context.Background()
	authorID, err := cat.UpsertAuthor(ctx, "Frank Herbert", "", "", "")
	require.NoError(t, err)
	bookID, err := cat.UpsertBook(ctx, catalog.BookMeta{
		ExternalID: "work-123", Title: "Dune", AuthorID: authorID,
	})
	require.NoError(t, err)
	return bookID
}

func TestUpsertThenGet(t *testing.T) {
	repo, db := newTestRepo(t)
	bookID := seedUserAndBook(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.ShelfItem{
		UserID: "u1", BookID: bookID, Status: "reading",
	}))

	it, err := repo.Get(ctx, "u1", bookID)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, "reading", it.Status)

	// status change updates in place
	require.NoError(t, repo.Upsert(ctx, models.ShelfItem{
		UserID: "u1", BookID: bookID, Status: "completed",
	}))

	it, err = repo.Get(ctx, "u1", bookID)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, "completed", it.Status)

	items, total, err := repo.List(ctx, "u1", "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestListStatusFilter(t *testing.T) {
	repo, db := newTestRepo(t)
	bookID := seedUserAndBook(t, db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.ShelfItem{
		UserID: "u1", BookID: bookID, Status: "wish_list",
	}))

	items, total, err := repo.List(ctx, "u1", "wish_list", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)

	items, total, err = repo.List(ctx, "u1", "reading", 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestDelete(t *testing.T) {
	repo, db := newTestRepo(t)
	bookID := seedUserAndBook(t, db)
	ctx := context.Background()

	ok, err := repo.Delete(ctx, "u1", bookID)
	require.NoError(t, err)
	assert.False(t, ok, "deleting an absent row reports not found")

	require.NoError(t, repo.Upsert(ctx, models.ShelfItem{
		UserID: "u1", BookID: bookID, Status: "reading",
	}))

	ok, err = repo.Delete(ctx, "u1", bookID)
	require.NoError(t, err)
	assert.True(t, ok)

	it, err := repo.Get(ctx, "u1", bookID)
	require.NoError(t, err)
	assert.Nil(t, it)
}
