package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractQuestions_FencedBlock(t *testing.T) {
	reply := "Here is the plan.\n\n```json\n{\"questions\": [{\"id\": 1, \"text\": \"Which database?\", \"options\": [\"postgres\", \"sqlite\"]}]}\n```\n"
	qs, ok := extractQuestions(reply)
	require.True(t, ok)
	require.Len(t, qs, 1)
	assert.Equal(t, 1, qs[0].ID)
	assert.Equal(t, "Which database?", qs[0].Text)
	assert.Equal(t, []string{"postgres", "sqlite"}, qs[0].Options)
}

func TestExtractQuestions_Aliases(t *testing.T) {
	reply := "```json\n{\"questions\": [{\"id\": 2, \"question\": \"Sync or async?\", \"answers\": [\"sync\", \"async\"]}]}\n```"
	qs, ok := extractQuestions(reply)
	require.True(t, ok)
	assert.Equal(t, "Sync or async?", qs[0].Text)
	assert.Equal(t, []string{"sync", "async"}, qs[0].Options)
}

func TestExtractQuestions_BalancedBraceScanWithoutFence(t *testing.T) {
	reply := `No fence here, just inline: {"questions": [{"id": 1, "text": "ok?", "options": ["yes", "no"]}]} trailing text`
	qs, ok := extractQuestions(reply)
	require.True(t, ok)
	assert.Equal(t, "ok?", qs[0].Text)
}

func TestExtractQuestions_NoneWhenAbsent(t *testing.T) {
	_, ok := extractQuestions("Just a plain plan with no questions.")
	assert.False(t, ok)
}

func TestScanBalancedBraces_IgnoresBracesInsideStrings(t *testing.T) {
	reply := `{"questions": [{"id": 1, "text": "what about {curly} braces?", "options": []}]}`
	raw, ok := scanBalancedBraces(reply)
	require.True(t, ok)
	qs, ok := parsePayload(raw)
	require.True(t, ok)
	assert.Equal(t, "what about {curly} braces?", qs[0].Text)
}

func TestFormatAnswersPrompt_IncludesEachAnswer(t *testing.T) {
	questions := []Question{{ID: 1, Text: "Which db?"}}
	answers := []Answer{{QuestionID: 1, Text: "postgres"}}
	prompt := formatAnswersPrompt(questions, answers)
	assert.Contains(t, prompt, "Which db?")
	assert.Contains(t, prompt, "postgres")
}
