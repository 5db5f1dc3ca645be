package requests

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

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func insertUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	require.NoError(t, err)
}

func importedBook(t *testing.T, cat *catalog.Repo, externalID string) int64 {
	t.Helper()
	ctx := context.Background()
	authorID, err := cat.UpsertAuthor(ctx, "Frank Herbert", "", "", "")
	require.NoError(t, err)
	bookID, err := cat.UpsertBook(ctx, catalog.BookMeta{
		ExternalID: externalID, Title: "Dune", AuthorID: authorID,
	})
	require.NoError(t, err)
	require.NoError(t, cat.InsertFile(ctx, models.BookFile{
		BookID: bookID,
		Path:   "/books/Frank Herbert/Dune/" + externalID + ".epub",
		Name:   externalID + ".epub",
	}))
	return bookID
}

func TestUpdaterCompletesRequestWithImportedFile(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.NewRepo(db)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")
	importedBook(t, cat, "work-123")

	id, err := repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "work-123", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestPending,
	})
	require.NoError(t, err)

	remote := []models.RemoteBook{{ID: 7, ForeignBookID: "work-123", Title: "Dune"}}
	require.NoError(t, NewUpdater(repo, cat).Run(ctx, remote))

	reqs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, id, reqs[0].ID)
	assert.Equal(t, models.RequestCompleted, reqs[0].Status)
	require.NotNil(t, reqs[0].CompletedAt)
}

func TestUpdaterMatchesByProviderID(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.NewRepo(db)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")
	importedBook(t, cat, "work-123")

	// requested under a stale external id but with the provider-assigned id
	_, err := repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "edition-old", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestAdded, ProviderID: 7,
	})
	require.NoError(t, err)

	remote := []models.RemoteBook{{ID: 7, ForeignBookID: "work-123", Title: "Dune"}}
	require.NoError(t, NewUpdater(repo, cat).Run(ctx, remote))

	reqs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.RequestCompleted, reqs[0].Status)
}

func TestUpdaterLeavesRequestsWithoutFiles(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.NewRepo(db)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")

	// book is known remotely but nothing has been imported yet
	authorID, err := cat.UpsertAuthor(ctx, "Frank Herbert", "", "", "")
	require.NoError(t, err)
	_, err = cat.UpsertBook(ctx, catalog.BookMeta{
		ExternalID: "work-123", Title: "Dune", AuthorID: authorID,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "work-123", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestPending,
	})
	require.NoError(t, err)

	remote := []models.RemoteBook{{ID: 7, ForeignBookID: "work-123", Title: "Dune"}}
	require.NoError(t, NewUpdater(repo, cat).Run(ctx, remote))

	reqs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.RequestPending, reqs[0].Status, "no imported file, no completion")
	assert.Nil(t, reqs[0].CompletedAt)
}

func TestUpdaterIgnoresRequestsMissingFromManifest(t *testing.T) {
	db := newTestDB(t)
	cat := catalog.NewRepo(db)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")
	importedBook(t, cat, "work-123")

	_, err := repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "work-123", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestPending,
	})
	require.NoError(t, err)

	// manifest no longer lists the book
	require.NoError(t, NewUpdater(repo, cat).Run(ctx, nil))

	reqs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, reqs[0].Status)
}

func TestMarkCompletedIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")
	id, err := repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "work-123", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestPending,
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkCompleted(ctx, id))
	reqs, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	first := reqs[0].CompletedAt
	require.NotNil(t, first)

	// a second pass must not touch the completion stamp
	require.NoError(t, repo.MarkCompleted(ctx, id))
	reqs, err = repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Unix(), reqs[0].CompletedAt.Unix())
}

func TestExistsForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	insertUser(t, db, "u1")
	insertUser(t, db, "u2")

	_, err := repo.Create(ctx, models.Request{
		UserID: "u1", ExternalID: "work-123", Title: "Dune", Author: "Frank Herbert",
		Status: models.RequestPending,
	})
	require.NoError(t, err)

	exists, err := repo.ExistsForUser(ctx, "u1", "work-123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForUser(ctx, "u2", "work-123")
	require.NoError(t, err)
	assert.False(t, exists, "dedup is per user, not global")
}
