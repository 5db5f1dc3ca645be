package provider

import (
	"context"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReadarr(t *testing.T) *Readarr {
	t.Helper()
	store := newTestStore(t)
	set(t, store, map[string]string{
		"readarr_url":     "http://readarr.local",
		"readarr_api_key": "key123",
	})

	r := NewReadarr(store)
	httpmock.ActivateNonDefault(r.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return r
}

func TestReadarrEnabled(t *testing.T) {
	store := newTestStore(t)
	r := NewReadarr(store)
	assert.False(t, r.Enabled(context.Background()), "unconfigured readarr is disabled")

	set(t, store, map[string]string{
		"readarr_url":     "http://readarr.local",
		"readarr_api_key": "key123",
	})
	assert.True(t, r.Enabled(context.Background()))
}

func TestReadarrSearchMapsResults(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", `=~^http://readarr\.local/api/v1/search`,
		httpmock.NewStringResponder(200, `[
			{
				"foreignId": "work-123",
				"title": "Dune",
				"authorName": "Frank Herbert",
				"releaseDate": "1965-08-01T00:00:00Z",
				"remoteCover": "http://covers/dune.jpg",
				"overview": "Spice.",
				"pageCount": 412,
				"ratings": {"value": 4.25}
			},
			{
				"foreignId": "",
				"title": "No foreign id, dropped"
			},
			{
				"foreignId": "work-456",
				"title": "Mystery Book"
			}
		]`))

	results, err := r.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, results, 2, "entries without a foreignId are dropped")

	first := results[0]
	assert.Equal(t, "work-123", first.ExternalID)
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, "Frank Herbert", first.Author)
	assert.Equal(t, 1965, first.Year)
	assert.Equal(t, "http://covers/dune.jpg", first.CoverURL)
	assert.Equal(t, 412, first.PageCount)
	assert.Equal(t, 4.25, first.Rating)
	assert.Equal(t, "readarr", first.Source)

	second := results[1]
	assert.Equal(t, "Unknown", second.Author, "missing author defaults")
	assert.Equal(t, "/placeholder.jpg", second.CoverURL, "missing cover defaults")
	assert.Equal(t, 0, second.Year)
}

func TestReadarrSearchServerError(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", `=~^http://readarr\.local/api/v1/search`,
		httpmock.NewStringResponder(500, "internal error"))

	_, err := r.Search(context.Background(), "dune")
	assert.Error(t, err)
}

func TestReadarrSearchNotConfigured(t *testing.T) {
	r := NewReadarr(newTestStore(t))

	_, err := r.Search(context.Background(), "dune")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestReadarrAddBook(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", `=~^http://readarr\.local/api/v1/search`,
		httpmock.NewStringResponder(200, `[
			{"foreignId": "other", "title": "Other"},
			{"foreignId": "work-123", "title": "Dune", "authorName": "Frank Herbert"}
		]`))
	httpmock.RegisterResponder("POST", "http://readarr.local/api/v1/book",
		httpmock.NewStringResponder(201, `{"id": 42, "title": "Dune"}`))

	id, err := r.AddBook(context.Background(), "work-123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestReadarrAddBookNotFound(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", `=~^http://readarr\.local/api/v1/search`,
		httpmock.NewStringResponder(200, `[]`))

	_, err := r.AddBook(context.Background(), "work-999")
	assert.ErrorContains(t, err, "not found")
}

func TestReadarrGetBooks(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", "http://readarr.local/api/v1/book",
		httpmock.NewStringResponder(200, `[
			{
				"id": 7,
				"foreignBookId": "work-123",
				"title": "Dune",
				"author": {"authorName": "Frank Herbert", "foreignAuthorId": "auth-1"},
				"genres": ["Science Fiction"]
			}
		]`))

	books, err := r.GetBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(7), books[0].ID)
	assert.Equal(t, "work-123", books[0].ForeignBookID)
	assert.Equal(t, "Frank Herbert", books[0].AuthorName())
}

func TestReadarrGetBookFiles(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", "http://readarr.local/api/v1/bookfile",
		httpmock.NewStringResponder(200, `[
			{
				"id": 11,
				"bookId": 7,
				"path": "/downloads/dune.epub",
				"size": 1048576,
				"quality": {"quality": {"name": "EPUB"}}
			}
		]`))

	files, err := r.GetBookFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int64(7), files[0].BookID)
	assert.Equal(t, "/downloads/dune.epub", files[0].Path)
	assert.Equal(t, "EPUB", files[0].QualityName())
}

func TestReadarrTestConnection(t *testing.T) {
	r := newTestReadarr(t)

	httpmock.RegisterResponder("GET", "http://readarr.local/api/v1/system/status",
		httpmock.NewStringResponder(200, `{"version": "0.3.0"}`))
	assert.True(t, r.TestConnection(context.Background()))

	httpmock.RegisterResponder("GET", "http://readarr.local/api/v1/system/status",
		httpmock.NewStringResponder(401, `{}`))
	assert.False(t, r.TestConnection(context.Background()))
}
