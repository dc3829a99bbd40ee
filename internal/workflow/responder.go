package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/metrics"
)

const respondPromptFormat = `Based on this SQL result, provide a friendly response to the user's request.

User Asked: %q
SQL Result: %s

Provide a concise, user-friendly response:
`

// Responder phrases an execution result back into conversation with one
// model call. The model's text is returned verbatim; call failures propagate
// to the caller as turn-level errors.
type Responder struct {
	provider llm.Provider
	model    llm.ModelConfig
	timeout  time.Duration
}

// NewResponder creates a responder using provider with the given model
// configuration. timeout bounds the model call; zero means no bound.
func NewResponder(provider llm.Provider, model llm.ModelConfig, timeout time.Duration) *Responder {
	return &Responder{provider: provider, model: model, timeout: timeout}
}

// Respond summarizes result in the context of the original input.
func (r *Responder) Respond(ctx context.Context, input, result string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := r.provider.Chat(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: fmt.Sprintf(respondPromptFormat, input, result)}},
		Model:    r.model,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	metrics.ObserveModelCall(r.provider.Name(), time.Since(start))

	return response.Content, nil
}
