package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot/internal/llm"
	"github.com/querypilot/querypilot/internal/models"
)

// scriptedProvider replays canned completions in order and records every
// request it receives. With failWhenExhausted set, calls past the end of the
// script return an error instead of empty content.
type scriptedProvider struct {
	mu                sync.Mutex
	responses         []string
	requests          []llm.Request
	err               error
	failWhenExhausted bool
}

func (s *scriptedProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		if s.failWhenExhausted {
			return nil, errors.New("script exhausted")
		}
		return &llm.Response{Content: "", FinishReason: "stop"}, nil
	}
	content := s.responses[0]
	s.responses = s.responses[1:]
	return &llm.Response{Content: content, FinishReason: "stop"}, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) SupportedModels() []string { return []string{"scripted-model"} }

func (s *scriptedProvider) lastPrompt(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	req := s.requests[len(s.requests)-1]
	require.NotEmpty(t, req.Messages)
	return req.Messages[len(req.Messages)-1].Content
}

func testModelConfig() llm.ModelConfig {
	return llm.ModelConfig{Provider: "scripted", Model: "scripted-model", Temperature: 0.1, MaxTokens: 256}
}

func TestClassifyValidJSON(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "insert", "sql_query": "INSERT INTO a (id) VALUES (1)", "explanation": "adds a row"}`,
	}}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	decision, err := c.Classify(context.Background(), "add a row", nil)
	require.NoError(t, err)
	require.Equal(t, models.IntentInsert, decision.Intent)
	require.Equal(t, "INSERT INTO a (id) VALUES (1)", decision.SQLQuery)
	require.Equal(t, "adds a row", decision.Explanation)

	require.Contains(t, provider.lastPrompt(t), `"add a row"`)
}

func TestClassifyDefaultsToSelect(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"sql_query": "SELECT * FROM a", "explanation": "shows the data"}`,
	}}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	decision, err := c.Classify(context.Background(), "show me the data", nil)
	require.NoError(t, err)
	require.Equal(t, models.IntentSelect, decision.Intent)
	require.Equal(t, "SELECT * FROM a", decision.SQLQuery)
}

func TestClassifyUnparseable(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"Sure! Here is the SQL you asked for: SELECT * FROM a",
	}}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	_, err := c.Classify(context.Background(), "show me the data", nil)
	require.ErrorIs(t, err, ErrUnparseable)
}

func TestClassifyProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	_, err := c.Classify(context.Background(), "show me the data", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnparseable)
}

func TestClassifyIncludesProfileContext(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`,
	}}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	profile := map[string]string{
		"goals":      "track expenses",
		"peak_hours": "mornings",
		"empty":      "",
	}
	_, err := c.Classify(context.Background(), "hi", profile)
	require.NoError(t, err)

	prompt := provider.lastPrompt(t)
	require.Contains(t, prompt, "User Profile Context:")
	require.Contains(t, prompt, "- goals: track expenses")
	require.Contains(t, prompt, "- peak_hours: mornings")
	require.NotContains(t, prompt, "- empty:")
}

func TestClassifyOmitsProfileContextWhenEmpty(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`,
	}}
	c := NewClassifier(provider, testModelConfig(), time.Second)

	_, err := c.Classify(context.Background(), "hi", nil)
	require.NoError(t, err)
	require.NotContains(t, provider.lastPrompt(t), "User Profile Context:")
}
