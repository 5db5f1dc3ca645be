package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bookarr/internal/settings"
	"bookarr/pkg/models"
)

// Readarr is the catalog server adapter: it serves both user search and the
// reconciliation manifest (book + file lists), and receives requested books.
type Readarr struct {
	Settings *settings.Store
	Client   *http.Client
}

type readarrConfig struct {
	url            string
	apiKey         string
	qualityProfile int
	rootFolder     string
}

func NewReadarr(store *settings.Store) *Readarr {
	return &Readarr{
		Settings: store,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Readarr) Name() string { return "readarr" }

func (r *Readarr) SearchTimeout() time.Duration { return 10 * time.Second }

// config re-reads connection settings; called before every operation so that
// settings changes apply without a restart.
func (r *Readarr) config(ctx context.Context) readarrConfig {
	vals := r.Settings.GetMultiple(ctx,
		"readarr_url", "readarr_api_key", "readarr_quality_profile", "readarr_root_folder")
	return readarrConfig{
		url:            vals["readarr_url"],
		apiKey:         vals["readarr_api_key"],
		qualityProfile: r.Settings.Int(ctx, "readarr_quality_profile", 1),
		rootFolder:     vals["readarr_root_folder"],
	}
}

func (r *Readarr) Enabled(ctx context.Context) bool {
	cfg := r.config(ctx)
	return cfg.url != "" && cfg.apiKey != ""
}

func (r *Readarr) get(ctx context.Context, cfg readarrConfig, path string, query url.Values, out any) error {
	if cfg.url == "" || cfg.apiKey == "" {
		return ErrNotConfigured
	}

	u := cfg.url + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("readarr: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", cfg.apiKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("readarr: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("readarr: status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("readarr: decode: %w", err)
	}
	return nil
}

type readarrSearchItem struct {
	ID            int64   `json:"id"`
	ForeignID     string  `json:"foreignId"`
	Title         string  `json:"title"`
	AuthorName    string  `json:"authorName"`
	ReleaseDate   string  `json:"releaseDate"`
	RemoteCover   string  `json:"remoteCover"`
	Overview      string  `json:"overview"`
	PageCount     int     `json:"pageCount"`
	Ratings       struct {
		Value float64 `json:"value"`
	} `json:"ratings"`
}

func (r *Readarr) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	cfg := r.config(ctx)

	var items []readarrSearchItem
	q := url.Values{"term": {query}}
	if err := r.get(ctx, cfg, "/api/v1/search", q, &items); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, it := range items {
		if it.ForeignID == "" {
			continue
		}

		author := it.AuthorName
		if author == "" {
			author = "Unknown"
		}
		cover := it.RemoteCover
		if cover == "" {
			cover = placeholderCover
		}

		results = append(results, models.SearchResult{
			ExternalID: it.ForeignID,
			Title:      it.Title,
			Author:     author,
			Year:       yearOf(it.ReleaseDate),
			CoverURL:   cover,
			Overview:   it.Overview,
			Rating:     it.Ratings.Value,
			PageCount:  it.PageCount,
			Source:     r.Name(),
		})
	}
	return results, nil
}

// AddBook pushes a book to the catalog server so it starts looking for it.
// Returns the id the server assigned.
func (r *Readarr) AddBook(ctx context.Context, externalID string) (int64, error) {
	cfg := r.config(ctx)
	if cfg.url == "" || cfg.apiKey == "" {
		return 0, ErrNotConfigured
	}

	// Look the book up first: the add endpoint wants the full search payload.
	var items []json.RawMessage
	if err := r.get(ctx, cfg, "/api/v1/search", url.Values{"term": {externalID}}, &items); err != nil {
		return 0, err
	}

	var payload map[string]any
	for _, raw := range items {
		var probe struct {
			ForeignID string `json:"foreignId"`
		}
		if json.Unmarshal(raw, &probe) == nil && probe.ForeignID == externalID {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return 0, fmt.Errorf("readarr: decode book: %w", err)
			}
			break
		}
	}
	if payload == nil {
		return 0, fmt.Errorf("readarr: book %s not found", externalID)
	}

	payload["qualityProfileId"] = cfg.qualityProfile
	payload["rootFolderPath"] = cfg.rootFolder
	payload["monitored"] = true
	payload["addOptions"] = map[string]any{"searchForNewBook": true}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("readarr: encode add: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.url+"/api/v1/book", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("readarr: build add request: %w", err)
	}
	req.Header.Set("X-Api-Key", cfg.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("readarr: add request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("readarr: add status %d: %s", resp.StatusCode, string(b))
	}

	var added struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return 0, fmt.Errorf("readarr: decode add response: %w", err)
	}
	return added.ID, nil
}

// GetBooks pulls the full remote book manifest for reconciliation.
func (r *Readarr) GetBooks(ctx context.Context) ([]models.RemoteBook, error) {
	var books []models.RemoteBook
	if err := r.get(ctx, r.config(ctx), "/api/v1/book", nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBookFiles pulls the full remote file manifest for reconciliation.
func (r *Readarr) GetBookFiles(ctx context.Context) ([]models.RemoteFile, error) {
	var files []models.RemoteFile
	if err := r.get(ctx, r.config(ctx), "/api/v1/bookfile", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Readarr) TestConnection(ctx context.Context) bool {
	var status map[string]any
	return r.get(ctx, r.config(ctx), "/api/v1/system/status", nil, &status) == nil
}
