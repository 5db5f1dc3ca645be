package models

import "time"

// Book is a catalog entry as stored locally. ExternalID is the catalog
// identifier assigned by the remote source and is the de-duplication key:
// re-importing the same book updates the row instead of creating a new one.
type Book struct {
	ID          int64      `json:"id"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Description string     `json:"description,omitempty"`
	CoverURL    string     `json:"cover_url,omitempty"`
	ReleaseDate string     `json:"release_date,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	ISBN        string     `json:"isbn,omitempty"`
	PageCount   int        `json:"page_count,omitempty"`
	Rating      float64    `json:"rating,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	Files       []BookFile `json:"files,omitempty"`
}

// BookFile is one imported file owned by a book. Path is the canonical
// on-disk location and is unique: a file whose path already exists in the
// store is considered already imported.
type BookFile struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"book_id"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Format     string    `json:"format,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	Quality    string    `json:"quality,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// ShelfItem is one user's reading state for one book.
type ShelfItem struct {
	UserID    string    `json:"user_id"`
	BookID    int64     `json:"book_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
