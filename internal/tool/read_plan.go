package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
)

const readPlanDescription = `Reads the approved plan for a context, if one exists.

Usage:
- context_id defaults to the current context
- Returns the plan's markdown content`

const readPlanSchema = `{
  "type": "object",
  "properties": {
    "context_id": {"type": "string"}
  }
}`

// ReadPlanInput is the read_plan tool's argument shape.
type ReadPlanInput struct {
	ContextID string `json:"context_id,omitempty"`
}

// ReadPlanTool surfaces a context's approved plan back to the model.
type ReadPlanTool struct{}

func NewReadPlanTool() *ReadPlanTool { return &ReadPlanTool{} }

func (t *ReadPlanTool) Name() string                    { return "read_plan" }
func (t *ReadPlanTool) Description() string              { return readPlanDescription }
func (t *ReadPlanTool) Signature() string                { return "read_plan(context_id?)" }
func (t *ReadPlanTool) Schema() json.RawMessage          { return json.RawMessage(readPlanSchema) }
func (t *ReadPlanTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *ReadPlanTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	if toolCtx.PlanStore == nil {
		return Fail("read_plan is unavailable: no context store configured"), nil
	}

	var in ReadPlanInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	id := in.ContextID
	if id == "" {
		id = toolCtx.ContextID
	}
	if id == "" {
		return Fail("read_plan: no context id available"), nil
	}

	content, err := toolCtx.PlanStore.LoadPlan(id)
	if err != nil {
		return Fail(fmt.Sprintf("no plan for context %s: %v", id, err)), nil
	}
	return Ok(content), nil
}
