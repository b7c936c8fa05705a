package llm

import "context"

// MockProvider is a mock chat provider for testing
type MockProvider struct {
	name string

	// Responses to return for each request
	Responses []*CompletionResponse
	Errors    []error

	// Track calls
	Calls []CompletionRequest

	currentIndex int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:      name,
		Responses: []*CompletionResponse{},
		Errors:    []error{},
		Calls:     []CompletionRequest{},
	}
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return m.name
}

// CreateCompletion implements Provider
func (m *MockProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	m.Calls = append(m.Calls, request)

	if m.currentIndex < len(m.Errors) && m.Errors[m.currentIndex] != nil {
		err := m.Errors[m.currentIndex]
		m.currentIndex++
		return nil, err
	}

	if m.currentIndex < len(m.Responses) {
		response := m.Responses[m.currentIndex]
		m.currentIndex++
		return response, nil
	}

	// Default response
	return &CompletionResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

// QueueResponse adds a canned response to the queue.
func (m *MockProvider) QueueResponse(content string) {
	m.Responses = append(m.Responses, &CompletionResponse{
		Content:      content,
		FinishReason: "stop",
	})
	m.Errors = append(m.Errors, nil)
}

// QueueError adds an error to the queue.
func (m *MockProvider) QueueError(err error) {
	m.Responses = append(m.Responses, nil)
	m.Errors = append(m.Errors, err)
}
