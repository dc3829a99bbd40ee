package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/metrics"
	"github.com/querypilot/querypilot/internal/models"
)

// ErrUnparseable reports that the model answered with something other than
// the requested JSON shape. It is recovered locally by the classify stage,
// never surfaced to the caller.
var ErrUnparseable = errors.New("model output is not valid JSON")

const classifyPromptFormat = `You are a SQL query assistant. Analyze this user request and generate appropriate SQL.

User Request: %q
%s
Respond in this JSON format only:
{
    "intent": "select|insert|update|delete|create",
    "sql_query": "THE EXACT SQL QUERY",
    "explanation": "Brief explanation of what you're doing"
}

IMPORTANT:
- Only generate valid SQL queries
- If uncertain, use SELECT to view existing data
- Always return valid JSON
`

// Classifier turns free text into a structured decision via one model call.
// It is stateless and performs no I/O besides that call, so tests can
// substitute a provider returning canned text.
type Classifier struct {
	provider llm.Provider
	model    llm.ModelConfig
	timeout  time.Duration
}

// NewClassifier creates a classifier using provider with the given model
// configuration. timeout bounds the model call; zero means no bound.
func NewClassifier(provider llm.Provider, model llm.ModelConfig, timeout time.Duration) *Classifier {
	return &Classifier{provider: provider, model: model, timeout: timeout}
}

// Classify produces a decision for input, optionally grounded in profile
// context. A non-JSON model answer returns ErrUnparseable; any other error
// is an infrastructure failure of the model capability.
func (c *Classifier) Classify(ctx context.Context, input string, profile map[string]string) (models.Decision, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(classifyPromptFormat, input, profileContext(profile))

	start := time.Now()
	response, err := c.provider.Chat(ctx, llm.Request{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
		Model:    c.model,
	})
	if err != nil {
		return models.Decision{}, fmt.Errorf("classify intent: %w", err)
	}
	metrics.ObserveModelCall(c.provider.Name(), time.Since(start))

	var decision models.Decision
	if err := json.Unmarshal([]byte(response.Content), &decision); err != nil {
		return models.Decision{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	// Absent intent defaults to select, the least destructive guess under
	// ambiguity. The declared intent is advisory only; the execution surface
	// runs the SQL text regardless of the label.
	if decision.Intent == "" {
		decision.Intent = models.IntentSelect
	}

	return decision, nil
}

func profileContext(profile map[string]string) string {
	if len(profile) == 0 {
		return ""
	}

	fields := make([]string, 0, len(profile))
	for field := range profile {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("\nUser Profile Context:\n")
	for _, field := range fields {
		if profile[field] == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", field, profile[field])
	}
	return b.String()
}
