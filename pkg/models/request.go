package models

import "time"

// Request statuses. A request only ever moves forward:
// pending -> added (pushed to the catalog server) -> completed (file imported).
const (
	RequestPending   = "pending"
	RequestAdded     = "added"
	RequestCompleted = "completed"
)

// Request is a user's ask for a book. ExternalID is the catalog id the book
// was requested under; ProviderID is the id the catalog server assigned when
// the book was pushed to it, 0 when the push failed or never happened.
type Request struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	CoverURL    string     `json:"cover_url,omitempty"`
	Status      string     `json:"status"`
	ProviderID  int64      `json:"provider_id,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
