package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://serpapi.com/search"

// VisualMatch is one entry of a Google Lens reverse-image search response.
type VisualMatch struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	Source     string `json:"source"`
	SourceIcon string `json:"source_icon"`
	Thumbnail  string `json:"thumbnail"`
}

type searchResponse struct {
	VisualMatches []VisualMatch `json:"visual_matches"`
	Error         string        `json:"error"`
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// Search runs a Google Lens query for pages that contain the given image.
func (c *Client) Search(ctx context.Context, imageURL string) ([]VisualMatch, error) {
	q := url.Values{}
	q.Set("engine", "google_lens")
	q.Set("url", imageURL)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("serpapi read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("serpapi decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi error: %s", parsed.Error)
	}

	return parsed.VisualMatches, nil
}
