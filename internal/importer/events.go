package importer

import "time"

// Sync event types broadcast to connected observers.
const (
	EventSyncStarted   = "sync.started"
	EventBookImported  = "sync.book_imported"
	EventSyncCompleted = "sync.completed"
)

type SyncEvent struct {
	Type     string    `json:"type"`
	Title    string    `json:"title,omitempty"`
	File     string    `json:"file,omitempty"`
	Books    int       `json:"books,omitempty"`
	Imported int       `json:"imported,omitempty"`
	At       time.Time `json:"at"`
}
