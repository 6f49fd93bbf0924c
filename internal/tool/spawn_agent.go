package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
)

const spawnAgentDescription = `Spawns a subagent to work on a focused task in isolation.

Usage:
- agent_name must match a registered agent definition
- task is the instruction handed to the subagent
- context, if provided, is pretty-printed JSON passed as background
- working_dir, if provided, scopes the subagent to a subdirectory`

const spawnAgentSchema = `{
  "type": "object",
  "properties": {
    "agent_name": {"type": "string"},
    "task": {"type": "string"},
    "context": {"type": "object"},
    "working_dir": {"type": "string"}
  },
  "required": ["agent_name", "task"]
}`

// SpawnAgentInput is the spawn_agent tool's argument shape.
type SpawnAgentInput struct {
	AgentName  string          `json:"agent_name"`
	Task       string          `json:"task"`
	Context    json.RawMessage `json:"context,omitempty"`
	WorkingDir string          `json:"working_dir,omitempty"`
}

// spawnAgentResult is the JSON shape returned as the tool's output.
type spawnAgentResult struct {
	Success       bool              `json:"success"`
	Output        string            `json:"output"`
	Iterations    int               `json:"iterations"`
	FilesModified []string          `json:"files_modified,omitempty"`
	CommandsRun   []string          `json:"commands_run,omitempty"`
	Artifacts     []json.RawMessage `json:"artifacts,omitempty"`
}

// SpawnAgentTool exposes the subagent manager as a callable tool.
type SpawnAgentTool struct {
	workDir string
}

func NewSpawnAgentTool(workDir string) *SpawnAgentTool { return &SpawnAgentTool{workDir: workDir} }

func (t *SpawnAgentTool) Name() string                    { return "spawn_agent" }
func (t *SpawnAgentTool) Description() string              { return spawnAgentDescription }
func (t *SpawnAgentTool) Signature() string                { return "spawn_agent(agent_name, task, context?, working_dir?)" }
func (t *SpawnAgentTool) Schema() json.RawMessage          { return json.RawMessage(spawnAgentSchema) }
func (t *SpawnAgentTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *SpawnAgentTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	if toolCtx.Subagent == nil {
		return Fail("spawn_agent is unavailable: no subagent manager configured"), nil
	}

	var in SpawnAgentInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	workDir := toolCtx.WorkDir
	if in.WorkingDir != "" {
		workDir = resolvePath(toolCtx.WorkDir, in.WorkingDir)
	}

	ctxJSON := ""
	if len(in.Context) > 0 {
		pretty, err := json.MarshalIndent(json.RawMessage(in.Context), "", "  ")
		if err == nil {
			ctxJSON = string(pretty)
		}
	}

	res, err := toolCtx.Subagent.Spawn(ctx, SpawnRequest{
		AgentName:   in.AgentName,
		Task:        in.Task,
		ContextJSON: ctxJSON,
		WorkingDir:  workDir,
	})
	if err != nil {
		return Fail(err.Error()), nil
	}

	payload, err := json.Marshal(spawnAgentResult{
		Success:       res.Success,
		Output:        res.Output,
		Iterations:    res.Iterations,
		FilesModified: res.FilesModified,
		CommandsRun:   res.CommandsRun,
		Artifacts:     res.Artifacts,
	})
	if err != nil {
		return Fail(fmt.Sprintf("marshal subagent result: %v", err)), nil
	}

	if !res.Success {
		return Fail(string(payload)), nil
	}
	return Ok(string(payload)), nil
}
