package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/querypilot/querypilot/internal/metrics"
	"github.com/querypilot/querypilot/internal/models"
	"github.com/querypilot/querypilot/internal/tools"
)

// Pipeline runs the five fixed stages of one conversation turn:
// profile, input, classify, execute, respond. Every turn runs all five in
// order; there is no branching between stages. Content-level problems flow
// through as text; only infrastructure failures return an error, in which
// case the caller's state is returned unchanged.
type Pipeline struct {
	classifier *Classifier
	responder  *Responder
	dispatcher tools.Dispatcher
	collector  Collector
	logger     *slog.Logger
	now        func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCollector enables profile collection on the first turn of a session.
func WithCollector(collector Collector) PipelineOption {
	return func(p *Pipeline) {
		p.collector = collector
	}
}

// WithPipelineLogger sets the pipeline's logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source for sync timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline assembles a pipeline over the given capabilities. The
// dispatcher is the only path to persistent storage.
func NewPipeline(classifier *Classifier, responder *Responder, dispatcher tools.Dispatcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		responder:  responder,
		dispatcher: dispatcher,
		logger:     slog.Default().With("component", "workflow"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type stageFunc func(ctx context.Context, state State) (State, error)

// Run executes one turn. CurrentInput must be set on state before calling.
// On error the input state is returned untouched, so no partially written
// turn ever reaches the caller.
func (p *Pipeline) Run(ctx context.Context, state State) (State, error) {
	stages := []stageFunc{
		p.profileStage,
		p.inputStage,
		p.classifyStage,
		p.executeStage,
		p.respondStage,
	}

	next := state
	for _, stage := range stages {
		updated, err := stage(ctx, next)
		if err != nil {
			return state, err
		}
		next = updated
	}

	metrics.ObserveTurn()
	return next, nil
}

// profileStage ensures profile context exists. Without a collector, or once
// collection has happened, it only stamps the action label.
func (p *Pipeline) profileStage(ctx context.Context, state State) (State, error) {
	if state.ProfileCollected || p.collector == nil {
		state.ActionTaken = ActionProfileLoaded
		return state, nil
	}

	answers, err := p.collector.Collect(ctx)
	if err != nil {
		return state, fmt.Errorf("collect profile: %w", err)
	}

	if state.Profile == nil {
		state.Profile = map[string]string{}
	}
	for field, answer := range answers {
		state.Profile[field] = answer
	}
	state.ProfileCollected = true
	state.ActionTaken = ActionProfileCollected
	return state, nil
}

// inputStage records that new input has arrived and resets the per-turn
// working fields. The conversation driver supplies CurrentInput before the
// pipeline is invoked.
func (p *Pipeline) inputStage(ctx context.Context, state State) (State, error) {
	p.logger.Info("user input", "user", state.UserID, "input", state.CurrentInput)
	state.SQLQuery = ""
	state.SQLResult = ""
	state.Reasoning = ""
	state.Intent = ""
	state.ActionTaken = ActionInputReceived
	state.LastSyncWithDB = p.now()
	return state, nil
}

// classifyStage invokes the classifier and records its decision. A parse
// failure is terminal for the turn's SQL but not for the pipeline: the
// execute stage treats the empty query as a no-op.
func (p *Pipeline) classifyStage(ctx context.Context, state State) (State, error) {
	decision, err := p.classifier.Classify(ctx, state.CurrentInput, state.Profile)
	if errors.Is(err, ErrUnparseable) {
		p.logger.Warn("classifier output unparseable", "user", state.UserID)
		metrics.ObserveParseFailure()
		state.ActionTaken = ActionParseFailed
		state.NextStep = "handle_error"
		state.SQLQuery = ""
		state.Intent = models.IntentError
		state.Reasoning = "The model response could not be parsed."
		return state, nil
	}
	if err != nil {
		return state, err
	}

	state.SQLQuery = decision.SQLQuery
	state.Intent = decision.Intent
	state.Reasoning = decision.Explanation
	state.ActionTaken = ActionClassifiedIntent
	state.NextStep = "execute_sql"
	return state, nil
}

// executeStage dispatches the generated SQL through the tool catalog. An
// empty query short-circuits with an explanatory action.
func (p *Pipeline) executeStage(ctx context.Context, state State) (State, error) {
	if state.SQLQuery == "" {
		state.ActionTaken = ActionNoQuery
		state.Reasoning = "No valid SQL query was generated"
		return state, nil
	}

	p.logger.Info("executing sql", "user", state.UserID, "intent", state.Intent, "sql", state.SQLQuery)

	result, err := p.dispatcher.Call(ctx, tools.ToolQueryData, map[string]any{"sql": state.SQLQuery})
	if err != nil {
		return state, fmt.Errorf("dispatch query: %w", err)
	}

	state.SQLResult = result
	state.ActionTaken = ActionSQLExecuted
	state.IsDBUpdated = true
	state.LastSyncWithDB = p.now()
	return state, nil
}

// respondStage generates the assistant reply and appends the turn to the
// transcript. History is only ever appended to, never rewritten.
func (p *Pipeline) respondStage(ctx context.Context, state State) (State, error) {
	reply, err := p.responder.Respond(ctx, state.CurrentInput, state.SQLResult)
	if err != nil {
		return state, err
	}

	now := p.now()
	state.Messages = append(state.Messages,
		models.Message{Role: "user", Content: state.CurrentInput, Timestamp: now},
		models.Message{Role: "assistant", Content: reply, Timestamp: now},
	)
	state.ActionTaken = ActionResponseGenerated
	return state, nil
}
