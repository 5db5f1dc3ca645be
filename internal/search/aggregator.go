package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"bookarr/internal/provider"
	"bookarr/pkg/models"
)

var (
	// ErrQueryTooShort rejects queries before any provider is invoked.
	ErrQueryTooShort = errors.New("query must be at least 2 characters")

	// ErrUnknownSource is returned for a source selector naming no provider.
	ErrUnknownSource = errors.New("unknown search source")

	// ErrAllSourcesFailed means zero results and at least one provider error.
	// A mix of hits and partial failures is still a success: availability
	// beats completeness here.
	ErrAllSourcesFailed = errors.New("all search sources failed")
)

// SourceError records one provider's failure without failing the search.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Aggregator fans a query out to every selected, enabled provider
// concurrently, each under its own timeout budget, and merges whatever
// succeeded. Provider order is registration order and each provider's
// results stay contiguous in the merged output.
type Aggregator struct {
	Providers []provider.Provider
}

func NewAggregator(providers ...provider.Provider) *Aggregator {
	return &Aggregator{Providers: providers}
}

// Search runs the aggregated search. source is "all" or one provider name.
// The returned error list has one entry per provider that failed or timed
// out; the call as a whole fails only when nothing succeeded and something
// errored.
func (a *Aggregator) Search(ctx context.Context, query, source string) ([]models.SearchResult, []SourceError, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, nil, ErrQueryTooShort
	}

	selected := make([]provider.Provider, 0, len(a.Providers))
	for _, p := range a.Providers {
		if source == "all" || source == p.Name() {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil, nil, ErrUnknownSource
	}

	type slot struct {
		results []models.SearchResult
		err     error
		skipped bool
	}
	slots := make([]slot, len(selected))

	var wg sync.WaitGroup
	for i, p := range selected {
		if !p.Enabled(ctx) {
			slots[i].skipped = true
			continue
		}

		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()

			// Each provider gets its own deadline; blowing it must not
			// delay or cancel any sibling.
			pctx, cancel := context.WithTimeout(ctx, p.SearchTimeout())
			defer cancel()

			results, err := p.Search(pctx, query)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || pctx.Err() == context.DeadlineExceeded {
					err = fmt.Errorf("search timed out after %s", p.SearchTimeout())
				}
				slots[i].err = err
				return
			}
			slots[i].results = results
		}(i, p)
	}
	wg.Wait()

	var merged []models.SearchResult
	var srcErrs []SourceError
	for i, p := range selected {
		s := slots[i]
		if s.skipped {
			continue
		}
		if s.err != nil {
			log.Printf("[search] source %s error: %v", p.Name(), s.err)
			srcErrs = append(srcErrs, SourceError{Source: p.Name(), Error: s.err.Error()})
			continue
		}
		merged = append(merged, s.results...)
	}

	if len(merged) == 0 && len(srcErrs) > 0 {
		return nil, srcErrs, ErrAllSourcesFailed
	}
	return merged, srcErrs, nil
}
