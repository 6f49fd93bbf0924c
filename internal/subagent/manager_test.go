package subagent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/agentdef"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/tool"
)

func newTestManager(t *testing.T, backend llm.Backend, defs ...*agentdef.Definition) *Manager {
	t.Helper()
	workDir := t.TempDir()
	reg := agentdef.NewRegistry()
	for _, d := range defs {
		reg.RegisterEmbedded(d)
	}
	tools := tool.DefaultRegistry(workDir)
	perm := permission.New(&permission.MockPrompter{Answer: permission.AnswerAlways}, false, zerolog.Nop())
	return New(reg, tools, backend, perm, nil, workDir, zerolog.Nop())
}

func explorerDef() *agentdef.Definition {
	return &agentdef.Definition{
		Name:          "explorer",
		Description:   "Explores the codebase",
		Instructions:  "You explore.",
		AllowedTools:  []string{"ls"},
		MaxIterations: 5,
	}
}

func TestSpawnFull_UnknownAgentFails(t *testing.T) {
	m := newTestManager(t, llm.NewMock())
	_, err := m.SpawnFull(context.Background(), Request{AgentName: "nope", Task: "do it"})
	require.Error(t, err)
}

func TestSpawnFull_SuccessfulRun(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "explored it"},
	})
	m := newTestManager(t, backend, explorerDef())

	res, err := m.SpawnFull(context.Background(), Request{AgentName: "explorer", Task: "look around"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "explored it", res.Output)
}

func TestSpawnFull_DepthCapExceeded(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "done"},
	})
	m := newTestManager(t, backend, explorerDef())

	m.stack = []int{1, 2, 3}
	_, err := m.SpawnFull(context.Background(), Request{AgentName: "explorer", Task: "look around"})
	require.Error(t, err)
}

func TestSpawnFull_NestedSpawnAtDepthTwoFails(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "done"},
	})
	m := newTestManager(t, backend, explorerDef())

	m.stack = []int{1, 2}
	_, err := m.SpawnFull(context.Background(), Request{AgentName: "explorer", Task: "look around"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Maximum spawn depth")
	assert.Equal(t, []int{1, 2}, m.stack)
}

func TestSpawnFull_InvalidWorkingDirFails(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{Role: schema.Assistant, Content: "done"},
	})
	m := newTestManager(t, backend, explorerDef())

	_, err := m.SpawnFull(context.Background(), Request{
		AgentName:  "explorer",
		Task:       "look around",
		WorkingDir: "/definitely/does/not/exist/anywhere",
	})
	require.Error(t, err)
}

func TestSpawnFull_MaxIterationsMapsToFailureMessage(t *testing.T) {
	backend := llm.NewMock(&llm.CompletionResult{
		Message: &schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{ID: "c1", Function: schema.FunctionCall{Name: "ls", Arguments: `{"path":"."}`}},
			},
		},
	})
	def := explorerDef()
	def.MaxIterations = 1
	m := newTestManager(t, backend, def)

	res, err := m.SpawnFull(context.Background(), Request{AgentName: "explorer", Task: "loop forever"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Subagent reached max iterations", res.FailureMessage)
}

func TestExtractActivity_CollectsFilesAndCommandsAndUnionsNested(t *testing.T) {
	transcript := buildTranscriptFixture(t)
	files, commands, artifacts := extractActivity(transcript)
	assert.Contains(t, files, "a.go")
	assert.Contains(t, files, "nested.go")
	assert.Contains(t, commands, "go test ./...")
	assert.Contains(t, commands, "go vet ./...")
	assert.Len(t, artifacts, 1)
}
