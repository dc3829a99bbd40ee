package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/tools"
)

type dispatchCall struct {
	name string
	args map[string]any
}

// recordingDispatcher returns a fixed result and records every call.
type recordingDispatcher struct {
	calls  []dispatchCall
	result string
	err    error
}

func (d *recordingDispatcher) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	d.calls = append(d.calls, dispatchCall{name: name, args: args})
	if d.err != nil {
		return "", d.err
	}
	return d.result, nil
}

type fakeCollector struct {
	answers map[string]string
	calls   int
}

func (f *fakeCollector) Collect(ctx context.Context) (map[string]string, error) {
	f.calls++
	return f.answers, nil
}

func newTestPipeline(provider *scriptedProvider, dispatcher tools.Dispatcher, opts ...PipelineOption) *Pipeline {
	cfg := testModelConfig()
	opts = append(opts, WithClock(func() time.Time {
		return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	}))
	return NewPipeline(
		NewClassifier(provider, cfg, time.Second),
		NewResponder(provider, cfg, time.Second),
		dispatcher,
		opts...,
	)
}

func runTurn(t *testing.T, p *Pipeline, state State, input string) State {
	t.Helper()
	state.CurrentInput = input
	updated, err := p.Run(context.Background(), state)
	require.NoError(t, err)
	return updated
}

func TestPipelineHappyTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT * FROM users", "explanation": "lists all users"}`,
		"Here are your users: John and Jane.",
	}}
	dispatcher := &recordingDispatcher{result: "(1, 'John')\n(2, 'Jane')"}
	p := newTestPipeline(provider, dispatcher)

	state := runTurn(t, p, NewState("u1", "User", "./databases"), "show all users")

	require.Equal(t, "SELECT * FROM users", state.SQLQuery)
	require.Equal(t, models.IntentSelect, state.Intent)
	require.Equal(t, "(1, 'John')\n(2, 'Jane')", state.SQLResult)
	require.True(t, state.IsDBUpdated)
	require.Equal(t, ActionResponseGenerated, state.ActionTaken)

	require.Len(t, dispatcher.calls, 1)
	require.Equal(t, tools.ToolQueryData, dispatcher.calls[0].name)
	require.Equal(t, "SELECT * FROM users", dispatcher.calls[0].args["sql"])

	require.Len(t, state.Messages, 2)
	require.Equal(t, "user", state.Messages[0].Role)
	require.Equal(t, "show all users", state.Messages[0].Content)
	require.Equal(t, "assistant", state.Messages[1].Role)
	require.Equal(t, "Here are your users: John and Jane.", state.Messages[1].Content)
}

func TestPipelineTranscriptAppendOnly(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`,
		"first reply",
		`{"intent": "select", "sql_query": "SELECT 2", "explanation": ""}`,
		"second reply",
		`{"intent": "select", "sql_query": "SELECT 3", "explanation": ""}`,
		"third reply",
	}}
	p := newTestPipeline(provider, &recordingDispatcher{result: "(1,)"})

	state := NewState("u1", "User", "./databases")
	for i, input := range []string{"one", "two", "three"} {
		state = runTurn(t, p, state, input)
		require.Len(t, state.Messages, 2*(i+1))
	}

	// Earlier turns are never rewritten.
	require.Equal(t, "one", state.Messages[0].Content)
	require.Equal(t, "first reply", state.Messages[1].Content)
	require.Equal(t, "two", state.Messages[2].Content)
	require.Equal(t, "second reply", state.Messages[3].Content)
	require.Equal(t, "three", state.Messages[4].Content)
	require.Equal(t, "third reply", state.Messages[5].Content)
}

func TestPipelineParseFailureCompletesTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I cannot express that as JSON, sorry.",
		"Something went wrong understanding your request.",
	}}
	dispatcher := &recordingDispatcher{result: "unused"}
	p := newTestPipeline(provider, dispatcher)

	state := runTurn(t, p, NewState("u1", "User", "./databases"), "gibberish")

	require.Equal(t, models.IntentError, state.Intent)
	require.Empty(t, state.SQLQuery)
	require.Empty(t, state.SQLResult)
	require.Empty(t, dispatcher.calls)

	// The turn still produces a reply and reaches the transcript.
	require.Len(t, state.Messages, 2)
	require.Equal(t, ActionResponseGenerated, state.ActionTaken)
}

func TestPipelineEmptyQueryShortCircuits(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "", "explanation": "nothing to run"}`,
		"I could not come up with a query for that.",
	}}
	dispatcher := &recordingDispatcher{result: "unused"}
	p := newTestPipeline(provider, dispatcher)

	state := runTurn(t, p, NewState("u1", "User", "./databases"), "do nothing")

	require.Empty(t, dispatcher.calls)
	require.Empty(t, state.SQLResult)
	require.False(t, state.IsDBUpdated)
	require.Len(t, state.Messages, 2)
}

func TestPipelineDispatcherErrorLeavesStateUntouched(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`,
	}}
	dispatcher := &recordingDispatcher{err: errors.New("server gone")}
	p := newTestPipeline(provider, dispatcher)

	before := NewState("u1", "User", "./databases")
	before.CurrentInput = "show data"

	after, err := p.Run(context.Background(), before)
	require.Error(t, err)
	require.Equal(t, before, after)
}

func TestPipelineResponderErrorLeavesStateUntouched(t *testing.T) {
	// The classify call is scripted; the respond call runs off the end of
	// the script and fails.
	provider := &scriptedProvider{
		responses:         []string{`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`},
		failWhenExhausted: true,
	}
	p := newTestPipeline(provider, &recordingDispatcher{result: "(1,)"})

	before := NewState("u1", "User", "./databases")
	before.CurrentInput = "show data"

	after, err := p.Run(context.Background(), before)
	require.Error(t, err)
	require.Equal(t, before, after)
	require.Empty(t, after.Messages)
}

func TestPipelineResetsPerTurnFields(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "insert", "sql_query": "INSERT INTO a VALUES (1)", "explanation": "adds a row"}`,
		"Added the row.",
		"not json this time",
		"Could not work that one out.",
	}}
	p := newTestPipeline(provider, &recordingDispatcher{result: "Query executed successfully. Rows affected: 1"})

	state := runTurn(t, p, NewState("u1", "User", "./databases"), "add a row")
	require.Equal(t, "INSERT INTO a VALUES (1)", state.SQLQuery)

	// The failed second turn must not leak the first turn's query or result.
	state = runTurn(t, p, state, "???")
	require.Empty(t, state.SQLQuery)
	require.Empty(t, state.SQLResult)
	require.Equal(t, models.IntentError, state.Intent)
}

func TestPipelineCollectorRunsOnce(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"intent": "select", "sql_query": "SELECT 1", "explanation": ""}`,
		"reply one",
		`{"intent": "select", "sql_query": "SELECT 2", "explanation": ""}`,
		"reply two",
	}}
	collector := &fakeCollector{answers: map[string]string{"goals": "learn SQL"}}
	p := newTestPipeline(provider, &recordingDispatcher{result: "(1,)"}, WithCollector(collector))

	state := runTurn(t, p, NewState("u1", "User", "./databases"), "first")
	require.True(t, state.ProfileCollected)
	require.Equal(t, "learn SQL", state.Profile["goals"])
	require.Equal(t, 1, collector.calls)

	runTurn(t, p, state, "second")
	require.Equal(t, 1, collector.calls)
}
