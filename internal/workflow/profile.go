package workflow

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Collector gathers profile context from the user before the first turn.
// This is the pipeline's only suspension point: Collect may block on human
// input, and implementations must give up on a question after a bounded wait
// and return whatever was collected so far.
type Collector interface {
	Collect(ctx context.Context) (map[string]string, error)
}

// Question is one profile question with the state field its answer fills.
type Question struct {
	Prompt string `yaml:"prompt"`
	Field  string `yaml:"field"`
}

// DefaultQuestions returns the built-in profile question set.
func DefaultQuestions() []Question {
	return []Question{
		{Prompt: "What are your main goals?", Field: "goals"},
		{Prompt: "What are your key strengths?", Field: "strengths"},
		{Prompt: "What challenges do you face?", Field: "challenges"},
		{Prompt: "When are you most productive?", Field: "peak_hours"},
		{Prompt: "How many hours daily?", Field: "daily_hours"},
	}
}

// LoadQuestions reads a question set from a YAML file, overriding the
// built-in set.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var questions []Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s is empty", path)
	}
	for i, q := range questions {
		if q.Prompt == "" || q.Field == "" {
			return nil, fmt.Errorf("question %d is missing prompt or field", i)
		}
	}
	return questions, nil
}
