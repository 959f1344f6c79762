package schema

import "context"

// ChatOptions configures a single LLM chat request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// LLMProvider is the interface every LLM backend must satisfy.
// Chat returns the assistant's text for the given conversation.
type LLMProvider interface {
	Chat(ctx context.Context, messages Messages, opts ChatOptions) (string, error)
	DefaultModel() string
}
