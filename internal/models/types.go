package models

import "time"

// Message represents one conversation turn.
type Message struct {
	Role      string    `json:"role"` // user, assistant, tool
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Intent is the classified category of a user request.
type Intent string

const (
	IntentSelect Intent = "select"
	IntentInsert Intent = "insert"
	IntentUpdate Intent = "update"
	IntentDelete Intent = "delete"
	IntentCreate Intent = "create"
	IntentError  Intent = "error"
)

// Valid reports whether the intent is one of the known kinds.
func (i Intent) Valid() bool {
	switch i {
	case IntentSelect, IntentInsert, IntentUpdate, IntentDelete, IntentCreate, IntentError:
		return true
	}
	return false
}

// Decision is the structured output of intent classification.
type Decision struct {
	Intent      Intent `json:"intent"`
	SQLQuery    string `json:"sql_query"`
	Explanation string `json:"explanation"`
}

// GoalFrequency describes how often a goal recurs.
type GoalFrequency string

const (
	FrequencyDaily   GoalFrequency = "daily"
	FrequencyWeekly  GoalFrequency = "weekly"
	FrequencyMonthly GoalFrequency = "monthly"
	FrequencyYearly  GoalFrequency = "yearly"
)

// GoalStatus describes the lifecycle state of a goal.
type GoalStatus string

const (
	GoalNotStarted GoalStatus = "not_started"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
	GoalAbandoned  GoalStatus = "abandoned"
	GoalOnHold     GoalStatus = "on_hold"
)

// PlanStatus describes the lifecycle state of a plan.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
	PlanPaused    PlanStatus = "paused"
)

// Goal is an individual goal record. The core workflow does not act on
// goals; the shape is kept for the planning extension and the durable store.
type Goal struct {
	ID           int           `json:"id"`
	UserID       string        `json:"user_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Frequency    GoalFrequency `json:"frequency"`
	Status       GoalStatus    `json:"status"`
	TargetValue  float64       `json:"target_value"`
	CurrentValue float64       `json:"current_value"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	DueDate      string        `json:"due_date"`
	Priority     int           `json:"priority"` // 1-5, 5 highest
}

// Plan is an individual plan record linked to a goal.
type Plan struct {
	ID                 int           `json:"id"`
	UserID             string        `json:"user_id"`
	GoalID             int           `json:"goal_id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Frequency          GoalFrequency `json:"frequency"`
	Status             PlanStatus    `json:"status"`
	StartDate          string        `json:"start_date"`
	EndDate            string        `json:"end_date"`
	Tasks              []string      `json:"tasks"`
	ProgressPercentage float64       `json:"progress_percentage"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Evaluation is a self-evaluation record for tracking progress.
type Evaluation struct {
	ID             int       `json:"id"`
	UserID         string    `json:"user_id"`
	GoalID         int       `json:"goal_id"`
	PlanID         int       `json:"plan_id"`
	EvaluationDate string    `json:"evaluation_date"`
	Score          float64   `json:"score"` // 1-10
	Notes          string    `json:"notes"`
	Achievements   []string  `json:"achievements"`
	Challenges     []string  `json:"challenges"`
	NextActions    []string  `json:"next_actions"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpsertGoals merges updates into current by id, appending records without
// an id and letting the last write win on collisions. Order of first
// appearance is preserved.
func UpsertGoals(current, updates []Goal) []Goal {
	merged := make([]Goal, len(current))
	copy(merged, current)

	index := make(map[int]int, len(merged))
	for i, g := range merged {
		if g.ID != 0 {
			index[g.ID] = i
		}
	}

	for _, g := range updates {
		if g.ID == 0 {
			merged = append(merged, g)
			continue
		}
		if i, ok := index[g.ID]; ok {
			merged[i] = g
		} else {
			index[g.ID] = len(merged)
			merged = append(merged, g)
		}
	}
	return merged
}

// UpsertPlans merges updates into current by id with the same semantics as
// UpsertGoals.
func UpsertPlans(current, updates []Plan) []Plan {
	merged := make([]Plan, len(current))
	copy(merged, current)

	index := make(map[int]int, len(merged))
	for i, p := range merged {
		if p.ID != 0 {
			index[p.ID] = i
		}
	}

	for _, p := range updates {
		if p.ID == 0 {
			merged = append(merged, p)
			continue
		}
		if i, ok := index[p.ID]; ok {
			merged[i] = p
		} else {
			index[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}
	return merged
}
