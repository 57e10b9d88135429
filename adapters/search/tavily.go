package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/ports"
)

// Config holds Tavily client configuration
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for the Tavily search API
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		BaseURL: "https://api.tavily.com",
		Timeout: 30 * time.Second,
	}
}

// TavilyClient implements SearchProvider against the Tavily REST API
type TavilyClient struct {
	config Config
	client *http.Client
}

// NewTavilyClient creates a new Tavily search client
func NewTavilyClient(config Config) (*TavilyClient, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("missing Tavily API key")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.tavily.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &TavilyClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Search runs a news-topic search. An empty result set is not an error.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]ports.Hit, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	body := tavilyRequest{
		APIKey:      c.config.APIKey,
		Query:       query,
		SearchDepth: "basic",
		Topic:       "news",
		MaxResults:  maxResults,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", core.ErrSearchFailed, err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/search"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", core.ErrSearchFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", core.ErrSearchFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tavily returned status %d: %s",
			core.ErrSearchFailed, resp.StatusCode, truncate(string(respRaw), 200))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respRaw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", core.ErrSearchFailed, err)
	}

	hits := make([]ports.Hit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		hits = append(hits, ports.Hit{
			Title:       r.Title,
			URL:         r.URL,
			Snippet:     r.Content,
			PublishedAt: parsePublished(r.PublishedDate),
		})
	}
	return hits, nil
}

// parsePublished is lenient: Tavily mixes date formats and often omits
// the field entirely. Unknown stays nil, scoring handles it downstream.
func parsePublished(s string) *core.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts := core.NewTimestamp(t)
			return &ts
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
