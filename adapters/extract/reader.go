package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crisiswatch/domain/core"
)

// maxBodyBytes caps how much article text a single extraction keeps.
// Long pages get clipped, downstream prompts clip further anyway.
const maxBodyBytes = 64 * 1024

// Config holds reader proxy configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig targets the public Jina reader endpoint
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL: "https://r.jina.ai",
		APIKey:  apiKey,
		Timeout: 45 * time.Second,
	}
}

// ReaderClient implements ContentExtractor via a reader proxy that
// renders an arbitrary article URL into plain text.
type ReaderClient struct {
	config Config
	client *http.Client
}

// NewReaderClient creates a new reader proxy client. An empty API key is
// allowed, the public endpoint works unauthenticated at lower rate limits.
func NewReaderClient(config Config) *ReaderClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://r.jina.ai"
	}
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	return &ReaderClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Extract fetches the page behind target and returns its plain text
func (c *ReaderClient) Extract(ctx context.Context, target string) (string, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", core.ErrExtractionFailed, target, err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/" + target
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", core.ErrExtractionFailed, err)
	}
	httpReq.Header.Set("Accept", "text/plain")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: reader returned status %d for %s",
			core.ErrExtractionFailed, resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", core.ErrExtractionFailed, err)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("%w: empty body for %s", core.ErrExtractionFailed, target)
	}
	return text, nil
}
