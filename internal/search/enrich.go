package search

import (
	"context"
	"log"
	"strings"
	"sync"
	"unicode"

	"bookarr/internal/provider"
	"bookarr/pkg/models"
)

// availabilityClient is the local-catalog collaborator the enricher asks
// "do you already have something like this".
type availabilityClient interface {
	Enabled(ctx context.Context) bool
	SearchSeries(ctx context.Context, query string) ([]provider.KavitaSeries, error)
}

// Enricher annotates search results with whether a matching entry already
// exists in the local reading library. Enrichment is best-effort: any
// failure leaves results unannotated, it never fails the search.
type Enricher struct {
	Library availabilityClient
}

func NewEnricher(library availabilityClient) *Enricher {
	return &Enricher{Library: library}
}

// Annotate sets InLibrary on each result. Lookups run concurrently, one per
// result, against a query built from title and author.
func (e *Enricher) Annotate(ctx context.Context, results []models.SearchResult) {
	if e.Library == nil || len(results) == 0 || !e.Library.Enabled(ctx) {
		return
	}

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(r *models.SearchResult) {
			defer wg.Done()

			query := r.Title
			if r.Author != "" {
				query += " " + r.Author
			}

			series, err := e.Library.SearchSeries(ctx, query)
			if err != nil {
				log.Printf("[enrich] availability check failed for %q: %v", r.Title, err)
				return
			}
			for _, s := range series {
				if titlesMatch(s.Name, r.Title) {
					r.InLibrary = true
					return
				}
			}
		}(&results[i])
	}
	wg.Wait()
}

// titlesMatch decides whether a library entry name and a searched title
// refer to the same book. Both are normalized, then matched by symmetric
// substring containment, falling back to token containment so that filler
// words and punctuation ("and the", apostrophes) don't hide a match. The
// rule deliberately favors false positives over missed matches.
func titlesMatch(name, title string) bool {
	a := normalizeTitle(name)
	b := normalizeTitle(title)
	if a == "" || b == "" {
		return false
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return tokensContained(a, b) || tokensContained(b, a)
}

// normalizeTitle lowercases, replaces every non-letter/digit run with a
// single space and trims.
func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// tokensContained reports whether every token of a appears in b. Single
// letters are skipped so stray possessive fragments don't block matching.
func tokensContained(a, b string) bool {
	bTokens := make(map[string]struct{})
	for _, t := range strings.Fields(b) {
		bTokens[t] = struct{}{}
	}

	matched := 0
	for _, t := range strings.Fields(a) {
		if len(t) < 2 {
			continue
		}
		if _, ok := bTokens[t]; !ok {
			return false
		}
		matched++
	}
	return matched > 0
}
