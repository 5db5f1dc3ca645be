package models

// SearchResult is the normalized, internal form of one hit from an external
// search provider.
//
// Every provider maps its own response shape into this structure first; the
// aggregator never looks past these fields. Source-specific data (seeders,
// raw size, indexer name, download links) goes into Extras and is passed
// through untouched.
type SearchResult struct {
	ExternalID string         `json:"external_id"`          // provider-scoped catalog id (or synthetic "jackett-<guid>")
	Title      string         `json:"title"`                // release / book title
	Author     string         `json:"author"`               // best-effort author name
	Year       int            `json:"year,omitempty"`       // publication year, 0 when unknown
	CoverURL   string         `json:"cover_url,omitempty"`  // cover image URL or placeholder
	Overview   string         `json:"overview,omitempty"`   // description text
	Rating     float64        `json:"rating"`               // 0 when the source has no ratings
	PageCount  int            `json:"page_count"`           // 0 when the source has no page data
	Source     string         `json:"source"`               // provider name, e.g. "readarr"
	InLibrary  bool           `json:"in_library"`           // set by availability enrichment
	Extras     map[string]any `json:"extras,omitempty"`     // source-specific optional fields
}
