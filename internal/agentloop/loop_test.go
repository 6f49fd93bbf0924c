package agentloop

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/stats"
	"github.com/llama-agent/llama-agent/internal/tool"
)

func newTestLoop(t *testing.T, backend llm.Backend, allowedTools []string) (*Loop, *tool.Registry) {
	t.Helper()
	reg := tool.DefaultRegistry(t.TempDir())
	perm := permission.New(&permission.MockPrompter{Answer: permission.AnswerAlways}, false, zerolog.Nop())
	l := New(Config{AllowedTools: allowedTools, WorkingDir: t.TempDir(), MaxIterations: 5},
		reg, backend, perm, stats.New(), nil, nil, nil, zerolog.Nop())
	return l, reg
}

func TestLoop_CompletesWithNoToolCalls(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "done"},
		Timings: llm.Timings{InputTokens: 10, OutputTokens: 5, ContextWindow: 1000},
	})
	l, _ := newTestLoop(t, backend, nil)

	res, err := l.Run(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, StopCompleted, res.Stop)
	assert.Equal(t, "done", res.FinalResponse)
	assert.Equal(t, 1, res.Iterations)
}

func TestLoop_ExecutesToolCallThenCompletes(t *testing.T) {
	backend := llm.NewMock(
		&llm.CompletionResult{
			Message: &schema.Message{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "call1", Function: schema.FunctionCall{Name: "ls", Arguments: `{"path":"."}`}},
				},
			},
		},
		&llm.CompletionResult{
			Message: &schema.Message{Role: schema.Assistant, Content: "listed it"},
		},
	)
	l, _ := newTestLoop(t, backend, []string{"ls"})

	res, err := l.Run(context.Background(), "list files")
	require.NoError(t, err)
	assert.Equal(t, StopCompleted, res.Stop)
	assert.Equal(t, 2, res.Iterations)

	msgs := l.Transcript()
	var sawToolResult bool
	for _, m := range msgs {
		if m.Role == message.RoleTool && m.ToolCallID == "call1" {
			sawToolResult = true
		}
	}
	assert.True(t, sawToolResult, "expected a tool-role reply for call1")
}

func TestLoop_UnknownToolProducesErrorMessageAndContinues(t *testing.T) {
	backend := llm.NewMock(
		&llm.CompletionResult{
			Message: &schema.Message{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "call1", Function: schema.FunctionCall{Name: "does-not-exist", Arguments: `{}`}},
				},
			},
		},
		&llm.CompletionResult{Message: &schema.Message{Role: schema.Assistant, Content: "ok"}},
	)
	l, _ := newTestLoop(t, backend, nil)

	res, err := l.Run(context.Background(), "do something")
	require.NoError(t, err)
	assert.Equal(t, StopCompleted, res.Stop)

	msgs := l.Transcript()
	found := false
	for _, m := range msgs {
		if m.ToolCallID == "call1" {
			assert.Contains(t, m.Content, "unknown tool")
			found = true
		}
	}
	assert.True(t, found)
}

func TestLoop_MaxIterationsStopsTheLoop(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "c", Function: schema.FunctionCall{Name: "ls", Arguments: `{"path":"."}`}},
			},
		},
	})
	l, _ := newTestLoop(t, backend, []string{"ls"})

	res, err := l.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, StopMaxIterations, res.Stop)
	assert.Equal(t, 5, res.Iterations)
}

func TestLoop_InterruptFlagStopsBeforeNextIteration(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "should not run"},
	})
	l, _ := newTestLoop(t, backend, nil)
	l.Interrupt().Store(true)

	res, err := l.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, StopUserCancelled, res.Stop)
	assert.Equal(t, 0, res.Iterations)
}

func TestLoop_PermissionDenialProducesDeniedMessage(t *testing.T) {
	backend := llm.NewMock(
		&llm.CompletionResult{
			Message: &schema.Message{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{ID: "call1", Function: schema.FunctionCall{Name: "ls", Arguments: `{"path":"."}`}},
				},
			},
		},
		&llm.CompletionResult{Message: &schema.Message{Role: schema.Assistant, Content: "done"}},
	)
	reg := tool.DefaultRegistry(t.TempDir())
	perm := permission.New(&permission.MockPrompter{Answer: permission.AnswerDeny}, false, zerolog.Nop())
	l := New(Config{AllowedTools: []string{"ls"}, WorkingDir: t.TempDir(), MaxIterations: 5},
		reg, backend, perm, stats.New(), nil, nil, nil, zerolog.Nop())

	_, err := l.Run(context.Background(), "list")
	require.NoError(t, err)

	msgs := l.Transcript()
	found := false
	for _, m := range msgs {
		if m.ToolCallID == "call1" {
			assert.Equal(t, "Permission denied", m.Content)
			found = true
		}
	}
	assert.True(t, found)
}

func TestLoop_ClearResetsToSystemOnly(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "done"},
	})
	l, _ := newTestLoop(t, backend, nil)
	_, err := l.Run(context.Background(), "hi")
	require.NoError(t, err)
	require.Greater(t, len(l.Transcript()), 1)

	l.Clear()
	msgs := l.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, message.RoleSystem, msgs[0].Role)
}

func TestBuildSystemPrompt_IncludesToolTableAndAgentsXML(t *testing.T) {
	reg := tool.DefaultRegistry(t.TempDir())
	prompt := buildSystemPrompt(Config{
		AvailableAgents: []AgentSummary{{Name: "explorer-agent", Description: "explores code"}},
	}, reg)

	assert.Contains(t, prompt, "# Available Tools")
	assert.Contains(t, prompt, "read")
	assert.Contains(t, prompt, "<available_agents>")
	assert.Contains(t, prompt, `name="explorer-agent"`)
}

func TestBuildSystemPrompt_SkipToolTable(t *testing.T) {
	reg := tool.DefaultRegistry(t.TempDir())
	prompt := buildSystemPrompt(Config{SkipToolTable: true}, reg)
	assert.NotContains(t, prompt, "# Available Tools")
}
