package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"learnlink-server/internal/domain"
)

const defaultBaseURL = "https://serpapi.com/search.json"

// Client runs Google Images searches through SerpAPI
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client; baseURL may be empty
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{apiKey: apiKey, baseURL: baseURL, httpClient: &http.Client{Timeout: 15 * time.Second}}
}

type searchResponse struct {
	Error         string `json:"error"`
	ImagesResults []struct {
		Original  string `json:"original"`
		Thumbnail string `json:"thumbnail"`
	} `json:"images_results"`
}

// SearchImage returns the first safe-search image for query, or domain.ErrNotFound
func (c *Client) SearchImage(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("tbm", "isch")
	params.Set("num", "1")
	params.Set("safe", "active")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search returned status: %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("image search error: %s", result.Error)
	}
	if len(result.ImagesResults) == 0 || result.ImagesResults[0].Original == "" {
		return "", domain.ErrNotFound
	}
	return result.ImagesResults[0].Original, nil
}
