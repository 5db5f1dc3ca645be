package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bookarr/internal/provider"
	"bookarr/pkg/models"
)

type fakeLibrary struct {
	enabled bool
	series  []provider.KavitaSeries
	err     error
}

func (f *fakeLibrary) Enabled(context.Context) bool { return f.enabled }

func (f *fakeLibrary) SearchSeries(context.Context, string) ([]provider.KavitaSeries, error) {
	return f.series, f.err
}

func TestTitlesMatch(t *testing.T) {
	cases := []struct {
		name, title string
		want        bool
	}{
		{"Dune", "Dune", true},
		{"DUNE", "dune", true},
		{"Dune", "Dune Messiah", true}, // substring containment, either way
		{"Dune Messiah", "Dune", true},
		{"Harry Potter Sorcerer Stone", "Harry Potter and the Sorcerer's Stone", true},
		{"The Hobbit!", "the hobbit", true},
		{"Dune", "Foundation", false},
		{"", "Dune", false},
		{"Dune", "", false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, titlesMatch(tc.name, tc.title),
			"titlesMatch(%q, %q)", tc.name, tc.title)
	}
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "harry potter and the sorcerer s stone",
		normalizeTitle("Harry Potter and the Sorcerer's Stone"))
	assert.Equal(t, "dune", normalizeTitle("  DUNE!!  "))
	assert.Equal(t, "", normalizeTitle("..."))
}

func TestAnnotateMarksMatches(t *testing.T) {
	lib := &fakeLibrary{
		enabled: true,
		series:  []provider.KavitaSeries{{ID: 1, Name: "Dune"}},
	}
	results := []models.SearchResult{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Foundation", Author: "Isaac Asimov"},
	}

	NewEnricher(lib).Annotate(context.Background(), results)

	assert.True(t, results[0].InLibrary)
	assert.False(t, results[1].InLibrary)
}

func TestAnnotateDisabledLibraryLeavesResultsAlone(t *testing.T) {
	lib := &fakeLibrary{enabled: false, series: []provider.KavitaSeries{{Name: "Dune"}}}
	results := []models.SearchResult{{Title: "Dune"}}

	NewEnricher(lib).Annotate(context.Background(), results)

	assert.False(t, results[0].InLibrary)
}

func TestAnnotateErrorIsBestEffort(t *testing.T) {
	lib := &fakeLibrary{enabled: true, err: errors.New("kavita down")}
	results := []models.SearchResult{{Title: "Dune"}}

	NewEnricher(lib).Annotate(context.Background(), results)

	assert.False(t, results[0].InLibrary, "lookup failure leaves the result unannotated")
}
