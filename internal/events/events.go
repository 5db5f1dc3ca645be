package events

import "time"

type ShelfEvent struct {
	Type   string    `json:"type"` // "shelf.update" or "shelf.delete"
	UserID string    `json:"user_id"`
	BookID int64     `json:"book_id"`
	Status string    `json:"status,omitempty"`
	At     time.Time `json:"at"`
}
