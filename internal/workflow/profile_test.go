package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeQuestionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultQuestions(t *testing.T) {
	questions := DefaultQuestions()
	require.Len(t, questions, 5)

	fields := map[string]bool{}
	for _, q := range questions {
		require.NotEmpty(t, q.Prompt)
		require.NotEmpty(t, q.Field)
		fields[q.Field] = true
	}
	require.True(t, fields["goals"])
	require.True(t, fields["peak_hours"])
}

func TestLoadQuestions(t *testing.T) {
	path := writeQuestionsFile(t, `
- prompt: "What team are you on?"
  field: team
- prompt: "Which schema do you use most?"
  field: schema
`)

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, "What team are you on?", questions[0].Prompt)
	require.Equal(t, "schema", questions[1].Field)
}

func TestLoadQuestionsMissingFile(t *testing.T) {
	_, err := LoadQuestions(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadQuestionsEmpty(t *testing.T) {
	_, err := LoadQuestions(writeQuestionsFile(t, "[]\n"))
	require.ErrorContains(t, err, "empty")
}

func TestLoadQuestionsMissingField(t *testing.T) {
	_, err := LoadQuestions(writeQuestionsFile(t, `
- prompt: "Only a prompt"
`))
	require.ErrorContains(t, err, "missing prompt or field")
}
