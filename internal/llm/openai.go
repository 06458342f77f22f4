package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/util"
)

const (
	// HuggingFaceRouterURL is the OpenAI-compatible inference router
	HuggingFaceRouterURL = "https://router.huggingface.co/v1"

	// HuggingFaceDefaultModel is the hosted instruct model used by default
	HuggingFaceDefaultModel = "mistralai/Mixtral-8x7B-Instruct-v0.1"
)

// OpenAIProvider implements the Provider interface for OpenAI models and any
// OpenAI-compatible endpoint
type OpenAIProvider struct {
	client       *openai.Client
	config       Config
	name         string
	defaultModel string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newOpenAICompatible("openai", openai.GPT4oMini, config), nil
}

// NewHuggingFaceProvider creates a provider for HuggingFace-hosted models
// served through the OpenAI-compatible router
func NewHuggingFaceProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("HuggingFace token is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = HuggingFaceRouterURL
	}
	return newOpenAICompatible("huggingface", HuggingFaceDefaultModel, config), nil
}

func newOpenAICompatible(name, defaultModel string, config Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = util.NewHTTPClient(0, config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
		name:         name,
		defaultModel: defaultModel,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Listing models is the cheapest authenticated call
	_, err := p.client.ListModels(ctx)
	if err != nil {
		logging.Warn().
			Add(logging.Provider(p.name)).
			Add(logging.Err(err)).
			Msg("Backend availability check failed")
		return false
	}
	return true
}

// Generate runs one chat completion
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 300
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &GenerateResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      respModel,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", p.name, &APIError{Provider: p.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("%s: %w", p.name, &APIError{Provider: p.name, StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()})
	}
	return fmt.Errorf("%s API error: %w", p.name, classifyTransport(err))
}
