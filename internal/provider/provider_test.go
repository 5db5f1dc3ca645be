package provider

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookarr/internal/settings"
	"bookarr/pkg/database"
)

func newTestStore(t *testing.T) *settings.Store {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return settings.NewStore(db)
}

func set(t *testing.T, store *settings.Store, kv map[string]string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range kv {
		require.NoError(t, store.Set(ctx, k, v))
	}
}

func TestExtractAuthor(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Dune - Frank Herbert", "Frank Herbert"},
		{"Dune by Frank Herbert", "Frank Herbert"},
		{"Dune (Frank Herbert)", "Frank Herbert"},
		{"Dune", ""},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, extractAuthor(tc.title), "extractAuthor(%q)", tc.title)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "Unknown", formatSize(0))
	assert.Equal(t, "Unknown", formatSize(-5))
	assert.Equal(t, "512.00 B", formatSize(512))
	assert.Equal(t, "1.00 KB", formatSize(1024))
	assert.Equal(t, "1.50 MB", formatSize(1536*1024))
	assert.Equal(t, "2.00 GB", formatSize(2*1024*1024*1024))
}

func TestYearOf(t *testing.T) {
	assert.Equal(t, 1997, yearOf("1997-06-26T00:00:00Z"))
	assert.Equal(t, 1965, yearOf("1965-08-01"))
	assert.Equal(t, 0, yearOf(""))
	assert.Equal(t, 0, yearOf("n/a"))
}

func TestIsBookCategory(t *testing.T) {
	assert.True(t, isBookCategory(nil), "uncategorized results are kept")
	assert.True(t, isBookCategory([]prowlarrCategory{{ID: 7020}}))
	assert.True(t, isBookCategory([]prowlarrCategory{{ID: 3030}}))
	assert.True(t, isBookCategory([]prowlarrCategory{{ID: 8010}}))
	assert.True(t, isBookCategory([]prowlarrCategory{{ID: 125000}}))
	assert.False(t, isBookCategory([]prowlarrCategory{{ID: 2000}}), "movies are not books")
	assert.True(t, isBookCategory([]prowlarrCategory{{ID: 2000}, {ID: 7000}}))
}
