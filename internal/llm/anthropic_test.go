package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.System != "You are a fact checker." {
			t.Errorf("Unexpected system prompt: %q", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Expected one user message, got %+v", req.Messages)
		}
		if req.Model != "claude-3-5-sonnet-20241022" {
			t.Errorf("Expected configured model, got %s", req.Model)
		}

		resp := anthropicResponse{
			ID:   "msg_123",
			Type: "message",
			Role: "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: "VERDICT: FAKE\n"},
				{Type: "text", Text: "REASON: Evidence [1] contradicts the claim."},
			},
			Model: "claude-3-5-sonnet-20241022",
			Usage: anthropicUsage{InputTokens: 50, OutputTokens: 50},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "claude-3-5-sonnet-20241022",
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{
		System: "You are a fact checker.",
		Prompt: "Claim: the Eiffel Tower is in Berlin",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := "VERDICT: FAKE\nREASON: Evidence [1] contradicts the claim."
	if resp.Text != want {
		t.Errorf("Expected %q, got %q", want, resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestAnthropicProvider_Generate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"overloaded", 529, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"test_error","message":"nope"}}`))
			}))
			defer server.Close()

			provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}

			_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("Expected error")
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("Expected transient=%v, got %v (%v)", tt.transient, IsTransient(err), err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %T", err)
			}
			if apiErr.Message != "test_error - nope" {
				t.Errorf("Unexpected message: %q", apiErr.Message)
			}
		})
	}
}

func TestAnthropicProvider_Generate_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{ID: "msg_empty", Type: "message"})
	}))
	defer server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestAnthropicProvider_Generate_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	provider, _ := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: url})
	_, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("Expected error for closed server")
	}
	if !IsTransient(err) {
		t.Errorf("Expected network error to be transient, got %v", err)
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
