package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopbot-dev/shopbot/internal/llm"
)

// LLMClassifier asks a chat model for the intent. The prompt pins the
// model to the closed intent list and the reply is coerced to Unknown
// if it falls outside it.
type LLMClassifier struct {
	provider llm.Provider
	model    string
}

// NewLLMClassifier creates a classifier backed by the given provider.
func NewLLMClassifier(provider llm.Provider, model string) *LLMClassifier {
	return &LLMClassifier{provider: provider, model: model}
}

func classifierPrompt() string {
	names := make([]string, len(All))
	for i, it := range All {
		names[i] = string(it)
	}
	return fmt.Sprintf(
		"You are an intent classifier for a shopping chatbot.\n"+
			"Possible intents are:\n%s\n\n"+
			"Return ONLY the intent name.",
		strings.Join(names, ", "))
}

// Classify sends the message to the model at temperature zero.
func (c *LLMClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	resp, err := c.provider.CreateCompletion(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: "system", Content: classifierPrompt()},
			{Role: "user", Content: message},
		},
		Temperature: 0,
	})
	if err != nil {
		return Unknown, fmt.Errorf("classify intent: %w", err)
	}

	return Parse(strings.TrimSpace(resp.Content)), nil
}
