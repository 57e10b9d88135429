package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crisiswatch/domain/core"
	"crisiswatch/ports"
)

func TestCleanJSONContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "\n  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unclosed fence untouched", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONContent(tt.content); got != tt.want {
				t.Errorf("cleanJSONContent(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func envelopeWith(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(payload)
}

func testClient(baseURL string) ports.Completer {
	config := DefaultConfig("test-model")
	config.BaseURL = baseURL
	config.Timeout = 5 * time.Second
	return NewFactory(config).WithCredential(ports.Credential{Name: "key-0", APIKey: "sk-test"})
}

func TestCompleteUnmarshalsContent(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(envelopeWith("```json\n{\"confirmed\":true,\"reason\":\"ok\"}\n```")))
	}))
	defer server.Close()

	var out struct {
		Confirmed bool   `json:"confirmed"`
		Reason    string `json:"reason"`
	}
	req := ports.CompletionRequest{System: "You are a verifier.", Prompt: "verify this", MaxTokens: 500}
	if err := testClient(server.URL).Complete(context.Background(), req, &out); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !out.Confirmed || out.Reason != "ok" {
		t.Errorf("unexpected decode: %+v", out)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(500) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}
	// system prompt without "json" gets the JSON-mode suffix appended
	messages := gotBody["messages"].([]any)
	system := messages[0].(map[string]any)["content"].(string)
	if system == "You are a verifier." {
		t.Error("expected JSON instruction appended to system prompt")
	}
}

func TestCompleteProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"rate limited", `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests},
		{"empty choices", `{"choices":[]}`, http.StatusOK},
		{"malformed envelope", `not json`, http.StatusOK},
		{"non-json content", envelopeWith("I cannot answer that."), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var out map[string]any
			err := testClient(server.URL).Complete(context.Background(), ports.CompletionRequest{Prompt: "p"}, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if !core.IsExternalServiceError(err) {
				t.Errorf("error not classified as external: %v", err)
			}
		})
	}
}

func TestMockCompleterScriptedResponses(t *testing.T) {
	mock := &MockCompleter{Responses: []string{`{"n":1}`, `{"n":2}`}}
	var out struct {
		N int `json:"n"`
	}
	for want := 1; want <= 2; want++ {
		if err := mock.Complete(context.Background(), ports.CompletionRequest{}, &out); err != nil {
			t.Fatalf("call %d: %v", want, err)
		}
		if out.N != want {
			t.Errorf("call %d: n = %d", want, out.N)
		}
	}
	if err := mock.Complete(context.Background(), ports.CompletionRequest{}, &out); err == nil {
		t.Error("expected error once responses are exhausted")
	}
	if len(mock.Calls) != 3 {
		t.Errorf("recorded %d calls, want 3", len(mock.Calls))
	}
}
