package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/newscheck/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "huggingface", "hf":
		return NewHuggingFaceProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured: every verdict falls back to UNCERTAIN
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, huggingface, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts application configuration to llm.Config. Missing
// credentials fall back to the provider's conventional environment variables.
func ConfigFromModel(llmCfg model.LLMConfig, verdict model.VerdictConfig, httpCfg model.HTTPConfig) Config {
	cfg := Config{
		Provider:    llmCfg.Provider,
		Model:       llmCfg.Model,
		APIKey:      llmCfg.APIKey,
		BaseURL:     llmCfg.BaseURL,
		MaxTokens:   verdict.MaxTokens,
		Temperature: verdict.Temperature,
		HTTPProxy:   httpCfg.HTTPProxy,
		HTTPSProxy:  httpCfg.HTTPSProxy,
		NoProxy:     httpCfg.NoProxy,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv(cfg.Provider)
	}
	if cfg.BaseURL == "" && strings.EqualFold(cfg.Provider, "ollama") {
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg
}

func apiKeyFromEnv(provider string) string {
	var names []string
	switch strings.ToLower(provider) {
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "huggingface", "hf":
		names = []string{"HF_TOKEN", "HUGGINGFACEHUB_API_TOKEN"}
	case "anthropic", "claude":
		names = []string{"ANTHROPIC_API_KEY"}
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
