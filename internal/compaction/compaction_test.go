package compaction

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/store"
)

func TestRun_ExtractsActivityAndPersistsCompactEntry(t *testing.T) {
	st := store.New(t.TempDir())
	state, err := st.Create(time.Now())
	require.NoError(t, err)

	messages := []message.Message{
		message.NewSystem("sys"),
		message.NewUser("please write a and b"),
		message.NewAssistant("working on it", []message.ToolCall{
			{ID: "1", Name: "write", Arguments: `{"file_path":"/a","content":"x"}`},
		}),
		message.NewToolResult("1", "ok"),
		message.NewAssistant("", []message.ToolCall{
			{ID: "2", Name: "write", Arguments: `{"file_path":"/b","content":"y"}`},
		}),
		message.NewToolResult("2", "ok"),
		message.NewUser("now run ls"),
		message.NewAssistant("", []message.ToolCall{
			{ID: "3", Name: "bash", Arguments: `{"command":"ls"}`},
		}),
		message.NewToolResult("3", "a\nb\n"),
		message.NewAssistant("all done", nil),
	}
	require.NoError(t, st.SaveMessages(state.ID, messages))

	backend := llm.NewMock(&llm.CompletionResult{Message: &schema.Message{Role: schema.Assistant, Content: "done"}})

	entry, err := Run(context.Background(), backend, st, state.ID, messages, "")
	require.NoError(t, err)
	assert.Equal(t, "done", entry.Summary)
	assert.Equal(t, []string{"/a", "/b"}, entry.FilesModified)
	assert.Equal(t, []string{"ls"}, entry.CommandsRun)

	reloaded, err := st.Load(state.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Messages, 1)
	assert.Equal(t, message.RoleSystem, reloaded.Messages[0].Role)
	assert.Contains(t, reloaded.Messages[0].Content, "done")
}

func TestParseSummary_FencedJSONPopulatesAllFields(t *testing.T) {
	reply := "```json\n{\"summary\": \"s\", \"key_decisions\": [\"d\"], \"current_state\": \"cs\", \"pending_tasks\": [\"p\"]}\n```"
	p := parseSummary(reply)
	assert.Equal(t, "s", p.Summary)
	assert.Equal(t, []string{"d"}, p.KeyDecisions)
	assert.Equal(t, "cs", p.CurrentState)
	assert.Equal(t, []string{"p"}, p.PendingTasks)
}

func TestParseSummary_PlainTextBecomesSummary(t *testing.T) {
	p := parseSummary("just a plain summary")
	assert.Equal(t, "just a plain summary", p.Summary)
}
