package llm

import "context"

// Message is a single chat message sent to a provider.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ToolCall is a structured tool invocation returned by the model. Tool calls
// are only ever surfaced here; they are never reconstructed from prose.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ModelConfig selects a provider and model plus generation parameters.
type ModelConfig struct {
	Provider    string  `json:"provider"` // openai, anthropic
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Request is a chat request to an LLM provider.
type Request struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Model    ModelConfig      `json:"model_config"`
}

// Usage tracks token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a chat response from an LLM provider.
type Response struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
	Usage        Usage      `json:"usage"`
	ModelUsed    string     `json:"model_used"`
}

// Provider is an interface for LLM providers.
type Provider interface {
	// Chat sends a chat request to the LLM and returns the response.
	Chat(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name.
	Name() string

	// SupportedModels returns a list of supported model names.
	SupportedModels() []string
}
