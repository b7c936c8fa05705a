package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultChatModel = openai.GPT4oMini

// OpenAIClient is the subset of the OpenAI SDK client used here.
// It exists so tests can substitute a fake without network access.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Provider on top of the OpenAI chat API.
type OpenAIProvider struct {
	client OpenAIClient
	model  string
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// NewOpenAIProvider creates a provider backed by the real OpenAI API.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = defaultChatModel
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// NewOpenAIProviderWithClient creates a provider with an injected client.
func NewOpenAIProviderWithClient(client OpenAIClient, model string) *OpenAIProvider {
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIProvider{client: client, model: model}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// CreateCompletion sends the conversation to the chat API and maps SDK
// failures onto ProviderError codes.
func (p *OpenAIProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	if len(request.Messages) == 0 {
		return nil, NewProviderError("openai", ErrorCodeInvalidRequest, "at least one message is required", nil)
	}

	model := request.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, len(request.Messages))
	for i, m := range request.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
	})
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewProviderError("openai", ErrorCodeServerError, "response contained no choices", nil)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func mapOpenAIError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := codeForStatus(apiErr.HTTPStatusCode)
		perr := NewProviderError("openai", code, apiErr.Message, err)
		perr.StatusCode = apiErr.HTTPStatusCode
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError("openai", ErrorCodeTimeout, "request timed out", err)
	}

	return NewProviderError("openai", ErrorCodeUnknown, err.Error(), err)
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorCodeRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorCodeAuthentication
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return ErrorCodeInvalidRequest
	case status >= 500:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}
