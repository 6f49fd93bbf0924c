// Package tool implements the process-wide tool registry: a catalog
// of tool definitions exposed to the agent loop, each returning a
// narrow {success, output, error} result.
package tool

import (
	"context"
	"encoding/json"
	"sync/atomic"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// SubagentSpawner is the narrow view of the subagent manager the
// spawn_agent tool depends on, kept here instead of importing
// internal/subagent directly to avoid a cycle (the subagent manager
// calls back into the tool registry).
type SubagentSpawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (SpawnResult, error)
}

// SpawnRequest mirrors the subagent manager's spawn request, trimmed
// to what the tool marshals from its JSON arguments.
type SpawnRequest struct {
	AgentName   string
	Task        string
	ContextJSON string
	WorkingDir  string
}

// SpawnResult mirrors a completed subagent run.
type SpawnResult struct {
	Success       bool
	Output        string
	Iterations    int
	FilesModified []string
	CommandsRun   []string
	Artifacts     []json.RawMessage
}

// PlanReader is the narrow view of the context store the read_plan
// tool depends on.
type PlanReader interface {
	LoadPlan(contextID string) (string, error)
}

// Tool is a single registered capability: name, description, compact
// signature, JSON schema, and an execute callback.
type Tool interface {
	Name() string
	Description() string
	// Signature is a compact, single-line call signature used in the
	// system-prompt tool table, e.g. "read(file_path, offset?, limit?)".
	Signature() string
	Schema() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error)
	EinoTool() einotool.InvokableTool
}

// ResourceKeyer is implemented by tools whose permission resource key
// depends on the call arguments (e.g. bash's command, write/edit's
// file path) rather than defaulting to the tool's own name.
type ResourceKeyer interface {
	ResourceKey(args json.RawMessage) string
}

// Context is handed to Execute: working dir, interrupt flag, timeout,
// context base path/id, and an optional subagent manager handle.
type Context struct {
	WorkDir         string
	Interrupt       *atomic.Bool
	TimeoutMS       int
	ContextBasePath string
	ContextID       string
	Subagent        SubagentSpawner
	PlanStore       PlanReader
}

// Aborted reports whether the interrupt flag has been raised.
func (c *Context) Aborted() bool {
	return c.Interrupt != nil && c.Interrupt.Load()
}

// Result is a Tool Result: success XOR a non-empty error, per the
// contract "success ⇒ error=''; ¬success ⇒ error≠''".
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error"`
}

// Ok builds a successful Result.
func Ok(output string) *Result {
	return &Result{Success: true, Output: output}
}

// Fail builds a failed Result. msg must be non-empty.
func Fail(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

// einoToolWrapper bridges a Tool into eino's InvokableTool.
type einoToolWrapper struct {
	t       Tool
	toolCtx func() *Context
}

func (w *einoToolWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        w.t.Name(),
		Desc:        w.t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(parseJSONSchemaToParams(w.t.Schema())),
	}, nil
}

func (w *einoToolWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	tc := &Context{}
	if w.toolCtx != nil {
		tc = w.toolCtx()
	}
	result, err := w.t.Execute(ctx, json.RawMessage(argsJSON), tc)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return result.Error, nil
	}
	return result.Output, nil
}

// newEinoTool wraps t with a callback that supplies the Tool Context
// to use for in-process Eino-driven calls (the backend adapter).
func newEinoTool(t Tool, toolCtx func() *Context) einotool.InvokableTool {
	return &einoToolWrapper{t: t, toolCtx: toolCtx}
}

func parseJSONSchemaToParams(rawSchema json.RawMessage) map[string]*schema.ParameterInfo {
	var parsed struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(rawSchema, &parsed); err != nil {
		return nil
	}

	required := make(map[string]bool, len(parsed.Required))
	for _, r := range parsed.Required {
		required[r] = true
	}

	params := make(map[string]*schema.ParameterInfo, len(parsed.Properties))
	for name, prop := range parsed.Properties {
		t := schema.String
		switch prop.Type {
		case "integer":
			t = schema.Integer
		case "number":
			t = schema.Number
		case "boolean":
			t = schema.Boolean
		case "array":
			t = schema.Array
		case "object":
			t = schema.Object
		}
		params[name] = &schema.ParameterInfo{Type: t, Desc: prop.Description, Required: required[name]}
	}
	return params
}
