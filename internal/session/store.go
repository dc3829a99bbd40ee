// Package session persists conversation sessions: identity, the append-only
// transcript, and the goal/plan/evaluation records carried by the session
// state. Backed by SQLite for local use or Postgres when a postgres DSN is
// configured.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/querypilot/querypilot/internal/models"
)

// Record is one stored session.
type Record struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	UserName     string
	DatabasePath string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Turn is one transcript entry. Turns are append-only: existing rows are
// never updated or deleted.
type Turn struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"index:idx_session_seq,unique"`
	Seq       int    `gorm:"index:idx_session_seq,unique"`
	Role      string
	Content   string
	CreatedAt time.Time
}

// GoalRecord stores one goal per session, upserted by goal id.
type GoalRecord struct {
	SessionID    string `gorm:"primaryKey"`
	GoalID       int    `gorm:"primaryKey"`
	UserID       string
	Title        string
	Description  string
	Frequency    string
	Status       string
	TargetValue  float64
	CurrentValue float64
	DueDate      string
	Priority     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlanRecord stores one plan per session, upserted by plan id.
type PlanRecord struct {
	SessionID          string   `gorm:"primaryKey"`
	PlanID             int      `gorm:"primaryKey"`
	UserID             string
	GoalID             int
	Title              string
	Description        string
	Frequency          string
	Status             string
	StartDate          string
	EndDate            string
	Tasks              []string `gorm:"serializer:json"`
	ProgressPercentage float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EvaluationRecord stores one self-evaluation.
type EvaluationRecord struct {
	ID             uint `gorm:"primaryKey;autoIncrement"`
	SessionID      string
	UserID         string
	GoalID         int
	PlanID         int
	EvaluationDate string
	Score          float64
	Notes          string
	Achievements   []string `gorm:"serializer:json"`
	Challenges     []string `gorm:"serializer:json"`
	NextActions    []string `gorm:"serializer:json"`
	CreatedAt      time.Time
}

// Store is the durable session store.
type Store struct {
	db *gorm.DB
}

// Open connects to the store. A postgres:// or postgresql:// DSN selects the
// Postgres backend; anything else is treated as a SQLite file path.
func Open(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create session store directory: %w", err)
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	if err := db.AutoMigrate(&Record{}, &Turn{}, &GoalRecord{}, &PlanRecord{}, &EvaluationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create starts a new session record.
func (s *Store) Create(ctx context.Context, userID, userName, databasePath string) (*Record, error) {
	record := &Record{
		ID:           uuid.NewString(),
		UserID:       userID,
		UserName:     userName,
		DatabasePath: databasePath,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return record, nil
}

// Get loads a session record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var record Record
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &record, nil
}

// AppendTurns appends messages to the session transcript in order. Sequence
// numbers continue from the current transcript length.
func (s *Store) AppendTurns(ctx context.Context, sessionID string, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Turn{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
			return err
		}

		turns := make([]Turn, 0, len(messages))
		for i, msg := range messages {
			turns = append(turns, Turn{
				SessionID: sessionID,
				Seq:       int(count) + i,
				Role:      msg.Role,
				Content:   msg.Content,
				CreatedAt: msg.Timestamp,
			})
		}
		if err := tx.Create(&turns).Error; err != nil {
			return fmt.Errorf("append turns: %w", err)
		}
		return nil
	})
}

// ListTurns returns the session transcript in conversation order.
func (s *Store) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	var turns []Turn
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq asc").
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

// UpsertGoal inserts or replaces the goal keyed by (session, goal id); the
// last write wins.
func (s *Store) UpsertGoal(ctx context.Context, sessionID string, goal models.Goal) error {
	record := GoalRecord{
		SessionID:    sessionID,
		GoalID:       goal.ID,
		UserID:       goal.UserID,
		Title:        goal.Title,
		Description:  goal.Description,
		Frequency:    string(goal.Frequency),
		Status:       string(goal.Status),
		TargetValue:  goal.TargetValue,
		CurrentValue: goal.CurrentValue,
		DueDate:      goal.DueDate,
		Priority:     goal.Priority,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert goal %d: %w", goal.ID, err)
	}
	return nil
}

// ListGoals returns the stored goals for a session ordered by id.
func (s *Store) ListGoals(ctx context.Context, sessionID string) ([]models.Goal, error) {
	var records []GoalRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("goal_id asc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]models.Goal, 0, len(records))
	for _, r := range records {
		goals = append(goals, models.Goal{
			ID:           r.GoalID,
			UserID:       r.UserID,
			Title:        r.Title,
			Description:  r.Description,
			Frequency:    models.GoalFrequency(r.Frequency),
			Status:       models.GoalStatus(r.Status),
			TargetValue:  r.TargetValue,
			CurrentValue: r.CurrentValue,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
			DueDate:      r.DueDate,
			Priority:     r.Priority,
		})
	}
	return goals, nil
}

// UpsertPlan inserts or replaces the plan keyed by (session, plan id); the
// last write wins.
func (s *Store) UpsertPlan(ctx context.Context, sessionID string, plan models.Plan) error {
	record := PlanRecord{
		SessionID:          sessionID,
		PlanID:             plan.ID,
		UserID:             plan.UserID,
		GoalID:             plan.GoalID,
		Title:              plan.Title,
		Description:        plan.Description,
		Frequency:          string(plan.Frequency),
		Status:             string(plan.Status),
		StartDate:          plan.StartDate,
		EndDate:            plan.EndDate,
		Tasks:              plan.Tasks,
		ProgressPercentage: plan.ProgressPercentage,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert plan %d: %w", plan.ID, err)
	}
	return nil
}

// ListPlans returns the stored plans for a session ordered by id.
func (s *Store) ListPlans(ctx context.Context, sessionID string) ([]models.Plan, error) {
	var records []PlanRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("plan_id asc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	plans := make([]models.Plan, 0, len(records))
	for _, r := range records {
		plans = append(plans, models.Plan{
			ID:                 r.PlanID,
			UserID:             r.UserID,
			GoalID:             r.GoalID,
			Title:              r.Title,
			Description:        r.Description,
			Frequency:          models.GoalFrequency(r.Frequency),
			Status:             models.PlanStatus(r.Status),
			StartDate:          r.StartDate,
			EndDate:            r.EndDate,
			Tasks:              r.Tasks,
			ProgressPercentage: r.ProgressPercentage,
			CreatedAt:          r.CreatedAt,
			UpdatedAt:          r.UpdatedAt,
		})
	}
	return plans, nil
}

// AddEvaluation stores one self-evaluation record.
func (s *Store) AddEvaluation(ctx context.Context, sessionID string, eval models.Evaluation) error {
	record := EvaluationRecord{
		SessionID:      sessionID,
		UserID:         eval.UserID,
		GoalID:         eval.GoalID,
		PlanID:         eval.PlanID,
		EvaluationDate: eval.EvaluationDate,
		Score:          eval.Score,
		Notes:          eval.Notes,
		Achievements:   eval.Achievements,
		Challenges:     eval.Challenges,
		NextActions:    eval.NextActions,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("add evaluation: %w", err)
	}
	return nil
}
