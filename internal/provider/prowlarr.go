package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookarr/internal/settings"
	"bookarr/pkg/models"
)

// Prowlarr searches a Prowlarr indexer manager. Prowlarr fans out to many
// indexers itself and can be slow, hence the larger search budget.
type Prowlarr struct {
	Settings *settings.Store
	Client   *http.Client
}

func NewProwlarr(store *settings.Store) *Prowlarr {
	return &Prowlarr{
		Settings: store,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Prowlarr) Name() string { return "prowlarr" }

func (p *Prowlarr) SearchTimeout() time.Duration { return 15 * time.Second }

func (p *Prowlarr) config(ctx context.Context) (enabled bool, baseURL, apiKey string) {
	vals := p.Settings.GetMultiple(ctx, "prowlarr_enabled", "prowlarr_url", "prowlarr_api_key")
	return vals["prowlarr_enabled"] == "true", vals["prowlarr_url"], vals["prowlarr_api_key"]
}

func (p *Prowlarr) Enabled(ctx context.Context) bool {
	enabled, baseURL, apiKey := p.config(ctx)
	return enabled && baseURL != "" && apiKey != ""
}

type prowlarrCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type prowlarrItem struct {
	Guid        string             `json:"guid"`
	Title       string             `json:"title"`
	PublishDate string             `json:"publishDate"`
	Size        int64              `json:"size"`
	Seeders     int                `json:"seeders"`
	Leechers    int                `json:"leechers"`
	Indexer     string             `json:"indexer"`
	DownloadURL string             `json:"downloadUrl"`
	InfoURL     string             `json:"infoUrl"`
	Files       int                `json:"files"`
	Categories  []prowlarrCategory `json:"categories"`
}

// isBookCategory reports whether a Torznab category id is book-related.
// Uncategorized results are kept: they might still be books.
func isBookCategory(cats []prowlarrCategory) bool {
	if len(cats) == 0 {
		return true
	}
	for _, c := range cats {
		switch {
		case c.ID == 3030: // Audio/Audiobook
			return true
		case c.ID >= 7000 && c.ID <= 7060: // Books/*
			return true
		case c.ID == 8010: // Books/Ebook (non-standard)
			return true
		case c.ID >= 100000 && c.ID < 200000: // custom indexer categories
			return true
		}
	}
	return false
}

func (p *Prowlarr) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	enabled, baseURL, apiKey := p.config(ctx)
	if !enabled || baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}

	u := baseURL + "/api/v1/search?" + url.Values{"query": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("prowlarr: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prowlarr: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("prowlarr: status %d: %s", resp.StatusCode, string(body))
	}

	var items []prowlarrItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("prowlarr: decode: %w", err)
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		if !isBookCategory(item.Categories) {
			continue
		}
		if len(results) >= 50 {
			break
		}

		title := item.Title
		if title == "" {
			title = "Unknown Title"
		}
		author := extractAuthor(item.Title)
		if author == "" {
			author = "Unknown Author"
		}
		indexer := item.Indexer
		if indexer == "" {
			indexer = "Unknown"
		}

		names := make([]string, 0, len(item.Categories))
		for _, c := range item.Categories {
			if c.Name != "" {
				names = append(names, c.Name)
			}
		}

		results = append(results, models.SearchResult{
			ExternalID: "prowlarr-" + item.Guid,
			Title:      title,
			Author:     author,
			Year:       yearOf(item.PublishDate),
			CoverURL:   placeholderCover, // Prowlarr doesn't provide covers
			Overview:   strings.Join(names, ", "),
			Source:     p.Name(),
			Extras: map[string]any{
				"size":         formatSize(item.Size),
				"seeders":      item.Seeders,
				"leechers":     item.Leechers,
				"indexer":      indexer,
				"download_url": item.DownloadURL,
				"info_url":     item.InfoURL,
				"files":        item.Files,
			},
		})
	}
	return results, nil
}

func (p *Prowlarr) TestConnection(ctx context.Context) bool {
	enabled, baseURL, apiKey := p.config(ctx)
	if !enabled || baseURL == "" || apiKey == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
