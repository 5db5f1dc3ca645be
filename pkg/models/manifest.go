package models

// Remote manifest types: the book and file lists pulled from the catalog
// server (Readarr) during a reconciliation pass. Field names follow its
// /api/v1/book and /api/v1/bookfile JSON.

type RemoteImage struct {
	URL string `json:"url"`
}

type RemoteAuthor struct {
	AuthorName      string        `json:"authorName"`
	ForeignAuthorID string        `json:"foreignAuthorId"`
	Overview        string        `json:"overview"`
	Images          []RemoteImage `json:"images"`
}

type RemoteEdition struct {
	ISBN13    string `json:"isbn13"`
	Publisher string `json:"publisher"`
}

type RemoteBook struct {
	ID             int64  `json:"id"`
	ForeignBookID  string `json:"foreignBookId"`
	Title          string `json:"title"`
	Overview       string `json:"overview"`
	ReleaseDate    string `json:"releaseDate"`
	PageCount      int    `json:"pageCount"`
	SeriesTitle    string `json:"seriesTitle"`
	SeriesID       string `json:"seriesId"`
	SeriesPosition float64 `json:"seriesPosition"`
	Genres         []string `json:"genres"`
	Ratings        struct {
		Value float64 `json:"value"`
	} `json:"ratings"`
	Author   *RemoteAuthor   `json:"author"`
	Images   []RemoteImage   `json:"images"`
	Editions []RemoteEdition `json:"editions"`
}

// AuthorName returns the book's author name or "Unknown" when the manifest
// carries no author block.
func (b RemoteBook) AuthorName() string {
	if b.Author == nil || b.Author.AuthorName == "" {
		return "Unknown"
	}
	return b.Author.AuthorName
}

// CoverURL returns the first image URL, if any.
func (b RemoteBook) CoverURL() string {
	if len(b.Images) == 0 {
		return ""
	}
	return b.Images[0].URL
}

type RemoteFile struct {
	ID     int64  `json:"id"`
	BookID int64  `json:"bookId"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Quality struct {
		Quality struct {
			Name string `json:"name"`
		} `json:"quality"`
	} `json:"quality"`
}

// QualityName returns the file's quality label or "Unknown".
func (f RemoteFile) QualityName() string {
	if f.Quality.Quality.Name == "" {
		return "Unknown"
	}
	return f.Quality.Quality.Name
}
