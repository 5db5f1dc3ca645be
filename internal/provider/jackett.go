package provider

import (
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

// Jackett searches a Jackett indexer proxy, restricted to book categories.
// Jackett results are raw indexer releases: no catalog ids, ratings or page
// counts, so those fields get synthetic or default values.
type Jackett struct {
	Settings *settings.Store
	Client   *http.Client
}

func NewJackett(store *settings.Store) *Jackett {
	return &Jackett{
		Settings: store,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (j *Jackett) Name() string { return "jackett" }

func (j *Jackett) SearchTimeout() time.Duration { return 10 * time.Second }

func (j *Jackett) config(ctx context.Context) (enabled bool, baseURL, apiKey string) {
	vals := j.Settings.GetMultiple(ctx, "jackett_enabled", "jackett_url", "jackett_api_key")
	return vals["jackett_enabled"] == "true", vals["jackett_url"], vals["jackett_api_key"]
}

func (j *Jackett) Enabled(ctx context.Context) bool {
	enabled, baseURL, apiKey := j.config(ctx)
	return enabled && baseURL != "" && apiKey != ""
}

type jackettResponse struct {
	Results []struct {
		Guid        string `json:"Guid"`
		Link        string `json:"Link"`
		Title       string `json:"Title"`
		PublishDate string `json:"PublishDate"`
		Poster      string `json:"Poster"`
		Description string `json:"Description"`
		Size        int64  `json:"Size"`
		Seeders     int    `json:"Seeders"`
		Tracker     string `json:"Tracker"`
	} `json:"Results"`
}

func (j *Jackett) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	enabled, baseURL, apiKey := j.config(ctx)
	if !enabled || baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{
		"apikey":   {apiKey},
		"Query":    {query},
		"Category": {"7000,7020"}, // eBook categories
		"limit":    {"50"},
	}
	u := baseURL + "/api/v2.0/indexers/all/results?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("jackett: build request: %w", err)
	}

	resp, err := j.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jackett: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jackett: status %d: %s", resp.StatusCode, string(body))
	}

	var jr jackettResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return nil, fmt.Errorf("jackett: decode: %w", err)
	}

	results := make([]models.SearchResult, 0, len(jr.Results))
	for _, item := range jr.Results {
		guid := item.Guid
		if guid == "" {
			guid = item.Link
		}

		title := item.Title
		if title == "" {
			title = "Unknown Title"
		}
		author := extractAuthor(item.Title)
		if author == "" {
			author = "Unknown Author"
		}
		cover := item.Poster
		if cover == "" {
			cover = placeholderCover
		}
		tracker := item.Tracker
		if tracker == "" {
			tracker = "Unknown"
		}

		results = append(results, models.SearchResult{
			ExternalID: "jackett-" + guid,
			Title:      title,
			Author:     author,
			Year:       yearOf(item.PublishDate),
			CoverURL:   cover,
			Overview:   item.Description,
			Source:     j.Name(),
			Extras: map[string]any{
				"size":    formatSize(item.Size),
				"seeders": item.Seeders,
				"indexer": tracker,
			},
		})
	}
	return results, nil
}

func (j *Jackett) TestConnection(ctx context.Context) bool {
	enabled, baseURL, apiKey := j.config(ctx)
	if !enabled || baseURL == "" || apiKey == "" {
		return false
	}

	q := url.Values{"apikey": {apiKey}, "Query": {"test"}, "limit": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		baseURL+"/api/v2.0/indexers/all/results?"+q.Encode(), nil)
	if err != nil {
		return false
	}

	resp, err := j.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
