// Package llm abstracts the chat-completion backend behind a small
// Provider interface so the dialogue engine and classifier never touch
// an SDK directly.
package llm

import "context"

// Provider defines the interface for chat-completion backends.
type Provider interface {
	// CreateCompletion sends a conversation and returns the reply.
	CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "openai", "mock")
	Name() string
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Model is the model to use (e.g., "gpt-4o-mini")
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (0.0-2.0)
	Temperature float32 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionResponse represents a completion response
type CompletionResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// FinishReason explains why generation stopped
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information
	Usage Usage `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Common error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication_error"
	ErrorCodeRateLimit      = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeUnknown        = "unknown_error"
)

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider      string `json:"provider"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	StatusCode    int    `json:"status_code,omitempty"`
	IsRetryable   bool   `json:"is_retryable"`
	OriginalError error  `json:"-"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Provider + " error: " + e.Message
}

// Unwrap returns the original error
func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, original error) *ProviderError {
	return &ProviderError{
		Provider:      provider,
		Code:          code,
		Message:       message,
		OriginalError: original,
		IsRetryable:   isRetryableCode(code),
	}
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrorCodeRateLimit, ErrorCodeServerError, ErrorCodeTimeout:
		return true
	default:
		return false
	}
}
