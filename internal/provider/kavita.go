package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Kavita is the local reading server collaborator used for availability
// enrichment: "is this book already in the library someone can read from".
// It is not a search Provider; the aggregator never fans out to it.
type kavitaStore interface {
	GetMultiple(ctx context.Context, keys ...string) map[string]string
}

type Kavita struct {
	Settings kavitaStore
	Client   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenURL    string // config the cached token was issued under
	tokenKey    string
}

func NewKavita(store kavitaStore) *Kavita {
	return &Kavita{
		Settings: store,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// KavitaSeries is one series entry from Kavita's library search.
type KavitaSeries struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (k *Kavita) config(ctx context.Context) (enabled bool, baseURL, apiKey string) {
	vals := k.Settings.GetMultiple(ctx, "kavita_enabled", "kavita_url", "kavita_api_key")
	return vals["kavita_enabled"] == "true", vals["kavita_url"], vals["kavita_api_key"]
}

func (k *Kavita) Enabled(ctx context.Context) bool {
	enabled, baseURL, apiKey := k.config(ctx)
	return enabled && baseURL != "" && apiKey != ""
}

// authenticate exchanges the API key for a JWT, caching it until close to
// its 24h expiry. A changed URL or key invalidates the cached token.
func (k *Kavita) authenticate(ctx context.Context) (string, string, error) {
	enabled, baseURL, apiKey := k.config(ctx)
	if !enabled || baseURL == "" || apiKey == "" {
		return "", "", ErrNotConfigured
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.token != "" && time.Now().Before(k.tokenExpiry) &&
		k.tokenURL == baseURL && k.tokenKey == apiKey {
		return baseURL, k.token, nil
	}

	body, _ := json.Marshal(map[string]string{"apiKey": apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/api/Plugin/authenticate", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("kavita: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("kavita: auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", fmt.Errorf("kavita: auth status %d: %s", resp.StatusCode, string(b))
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", "", fmt.Errorf("kavita: decode auth: %w", err)
	}
	if auth.Token == "" {
		return "", "", fmt.Errorf("kavita: empty auth token")
	}

	k.token = auth.Token
	k.tokenExpiry = time.Now().Add(23 * time.Hour)
	k.tokenURL = baseURL
	k.tokenKey = apiKey
	return baseURL, k.token, nil
}

// SearchSeries searches the Kavita library for series matching the query.
func (k *Kavita) SearchSeries(ctx context.Context, query string) ([]KavitaSeries, error) {
	baseURL, token, err := k.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	u := baseURL + "/api/Series/search?" + url.Values{"queryString": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("kavita: build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kavita: search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("kavita: search status %d: %s", resp.StatusCode, string(b))
	}

	var series []KavitaSeries
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, fmt.Errorf("kavita: decode search: %w", err)
	}
	return series, nil
}

func (k *Kavita) TestConnection(ctx context.Context) bool {
	baseURL, token, err := k.authenticate(ctx)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/Library", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
