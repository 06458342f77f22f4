package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Provider defines the interface for reasoning backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends one prompt and returns the raw completion text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains one completion request
type GenerateRequest struct {
	// System frames the model's role
	System string

	// Prompt is the composed user prompt
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature is kept low for repeatable labels
	Temperature float32
}

// GenerateResponse contains the raw completion
type GenerateResponse struct {
	// Text is the generated text, untrimmed of reasoning
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "huggingface", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible routers)
	BaseURL string

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float32

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		MaxTokens:   300,
		Temperature: 0.2,
	}
}

// ErrTransient marks backend failures worth retrying: rate limits, overload,
// server errors, network errors and per-attempt timeouts
var ErrTransient = errors.New("transient backend error")

// APIError is a non-success response from a backend
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrTransient) match retryable statuses
func (e *APIError) Is(target error) bool {
	return target == ErrTransient && transientStatus(e.StatusCode)
}

func transientStatus(code int) bool {
	// 529 is Anthropic's "overloaded"
	return code == http.StatusTooManyRequests || code >= 500
}

// IsTransient reports whether err may succeed on retry
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classifyTransport marks network failures and per-attempt timeouts as
// transient. Caller cancellation is final.
func classifyTransport(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
