package domain

import "context"

// Message is one turn of a chat prompt.
type Message struct {
	Role    string
	Content string
}

// LLMClient defines the capability to send chat prompts to an LLM and receive textual responses.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}
