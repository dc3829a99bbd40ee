// Package workflow implements the intent-to-SQL conversation pipeline: a
// fixed sequence of stages that thread one session state value from raw user
// text to a generated assistant reply.
package workflow

import (
	"time"

	"github.com/querypilot/querypilot/internal/models"
)

// Action labels stamped on the state by each stage.
const (
	ActionProfileLoaded     = "profile_loaded"
	ActionProfileCollected  = "profile_collected"
	ActionInputReceived     = "user_input_received"
	ActionClassifiedIntent  = "classified_intent"
	ActionParseFailed       = "failed_to_parse_intent"
	ActionNoQuery           = "no_sql_query"
	ActionSQLExecuted       = "sql_executed"
	ActionResponseGenerated = "response_generated"
)

// State is the session state threaded through the pipeline. Stages receive
// it by value and return an updated copy; the conversation transcript is
// append-only.
type State struct {
	// User identity.
	UserID   string
	UserName string

	// Conversation.
	Messages     []models.Message
	CurrentInput string

	// Profile context collected once per session: free-text fields such as
	// goals, strengths, challenges.
	Profile          map[string]string
	ProfileCollected bool

	// Goal and plan records. The core workflow only carries these; they are
	// exercised by the durable session store and the planning extension.
	Goals             []models.Goal
	CurrentGoalID     int
	GoalsToEvaluate   []models.Goal
	WeeklyPlans       []models.Plan
	MonthlyPlans      []models.Plan
	YearlyPlans       []models.Plan
	RecentEvaluations []models.Evaluation

	// System state.
	LastSyncWithDB time.Time
	ActionTaken    string
	Reasoning      string
	NextStep       string

	// Database state.
	DatabasePath string
	IsDBUpdated  bool

	// Per-turn SQL fields.
	SQLQuery  string
	SQLResult string
	Intent    models.Intent
}

// NewState creates the initial state for a new session.
func NewState(userID, userName, dbPath string) State {
	return State{
		UserID:         userID,
		UserName:       userName,
		Messages:       []models.Message{},
		Profile:        map[string]string{},
		DatabasePath:   dbPath,
		LastSyncWithDB: time.Now(),
	}
}
