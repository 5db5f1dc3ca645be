package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"bookarr/pkg/models"
)

// Provider is implemented by each external search source. Each adapter is
// responsible for refreshing its own configuration from the settings store
// immediately before use, fetching its own response format and mapping it
// into SearchResult.
type Provider interface {
	Name() string

	// Enabled reports whether the adapter is currently configured and turned
	// on. A disabled provider must not be searched.
	Enabled(ctx context.Context) bool

	// SearchTimeout is this provider class's search budget. The aggregator
	// bounds each Search call with it.
	SearchTimeout() time.Duration

	Search(ctx context.Context, query string) ([]models.SearchResult, error)

	// TestConnection never fails: any error maps to false.
	TestConnection(ctx context.Context) bool
}

// ErrNotConfigured is returned when an operation needs a provider whose URL
// or API key is missing.
var ErrNotConfigured = errors.New("provider not configured")

var authorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`),       // Title - Author
	regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`),  // Title by Author
	regexp.MustCompile(`^(.+?)\s*\((.+?)\)\s*$`),   // Title (Author)
}

// extractAuthor guesses an author name from a release title. Indexer results
// carry no structured author field, so this is best-effort pattern matching.
func extractAuthor(title string) string {
	for _, p := range authorPatterns {
		if m := p.FindStringSubmatch(title); m != nil {
			return m[2]
		}
	}
	return ""
}

// formatSize renders a byte count for display, "Unknown" when absent.
func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}

// yearOf extracts the year from a date string like "1997-06-26T00:00:00Z".
// Returns 0 when the date is missing or unparseable.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t.Year()
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

const placeholderCover = "/placeholder.jpg"
