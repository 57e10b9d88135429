package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/ports"
)

// Config holds the completion-provider settings
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns provider settings suitable for most runs
func DefaultConfig(model string) Config {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       model,
		Temperature: 0,
		MaxTokens:   2048,
		Timeout:     120 * time.Second,
	}
}

// StructuredClient provides typed JSON responses from an OpenAI-style
// chat-completions endpoint. It is bound to one credential handle; use
// Factory to produce clients per credential.
type StructuredClient struct {
	config Config
	cred   ports.Credential
	http   *http.Client
}

// Factory builds StructuredClients bound to individual credentials
type Factory struct {
	config Config
}

// NewFactory creates a client factory for the given provider config
func NewFactory(config Config) *Factory {
	log.Printf("[StructuredClient] Factory initialized: model=%s, temp=%.2f, maxTokens=%d, timeout=%s",
		config.Model, config.Temperature, config.MaxTokens, config.Timeout)
	return &Factory{config: config}
}

// WithCredential returns a Completer bound to one credential handle
func (f *Factory) WithCredential(cred ports.Credential) ports.Completer {
	return &StructuredClient{
		config: f.config,
		cred:   cred,
		http:   &http.Client{Timeout: f.config.Timeout},
	}
}

// Complete makes a structured completion call and unmarshals the model's
// JSON answer into out.
func (c *StructuredClient) Complete(ctx context.Context, req ports.CompletionRequest, out any) error {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type responseFormat struct {
		Type string `json:"type"`
	}
	type requestBody struct {
		Model          string         `json:"model"`
		Messages       []message      `json:"messages"`
		Temperature    float64        `json:"temperature"`
		MaxTokens      int            `json:"max_tokens,omitempty"`
		ResponseFormat responseFormat `json:"response_format"`
	}

	system := req.System
	if system == "" {
		system = "You are a careful analyst. Respond with valid JSON only."
	}
	// JSON mode requires the word "JSON" somewhere in the conversation
	if !strings.Contains(strings.ToLower(system), "json") {
		system += "\n\nRespond with valid JSON output."
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	body := requestBody{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    c.config.Temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	log.Printf("[StructuredClient] Request: model=%s, cred=%s, promptLength=%d",
		c.config.Model, c.cred.Name, len(req.Prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cred.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: timeout after %s: %v", core.ErrCompletionFailed, c.config.Timeout, err)
		}
		return fmt.Errorf("%w: %v", core.ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", core.ErrCompletionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider status %d: %s", core.ErrCompletionFailed, resp.StatusCode, truncate(string(payload), 300))
	}

	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("%w: parse response envelope: %v", core.ErrCompletionFailed, err)
	}
	if len(envelope.Choices) == 0 {
		return fmt.Errorf("%w: no choices in response", core.ErrCompletionFailed)
	}

	content := cleanJSONContent(envelope.Choices[0].Message.Content)
	log.Printf("[StructuredClient] Response: %d bytes of JSON content", len(content))

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: parse JSON content into %T: %v", core.ErrCompletionFailed, out, err)
	}
	return nil
}

// cleanJSONContent removes markdown code fences some models wrap around
// JSON despite JSON mode.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
