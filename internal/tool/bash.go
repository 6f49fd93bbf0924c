package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
)

const bashDescription = `Executes a shell command in the working directory.

Usage:
- command is required
- Optional timeout_ms (capped at 600000)
- Output is captured from stdout and stderr, truncated at 30000 bytes`

const bashSchema = `{
  "type": "object",
  "properties": {
    "command": {"type": "string"},
    "timeout_ms": {"type": "integer"}
  },
  "required": ["command"]
}`

const (
	defaultBashTimeout = 120 * time.Second
	maxBashTimeout     = 10 * time.Minute
	maxBashOutput      = 30000
)

// BashInput is the bash tool's argument shape.
type BashInput struct {
	Command   string `json:"command"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// BashTool runs a shell command. Permission checking happens in the
// agent loop before Execute runs; this tool only executes.
type BashTool struct {
	workDir string
	shell   string
}

func NewBashTool(workDir string) *BashTool {
	shell := "/bin/sh"
	if _, err := exec.LookPath("bash"); err == nil {
		shell = "bash"
	}
	return &BashTool{workDir: workDir, shell: shell}
}

func (t *BashTool) Name() string                    { return "bash" }
func (t *BashTool) Description() string              { return bashDescription }
func (t *BashTool) Signature() string                { return "bash(command, timeout_ms?)" }
func (t *BashTool) Schema() json.RawMessage          { return json.RawMessage(bashSchema) }
func (t *BashTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

// ResourceKey derives a permission pattern from the command's first
// token (e.g. "git commit -m x" -> "git *"), so "always allow" answers
// cover a whole command family instead of one exact invocation.
func (t *BashTool) ResourceKey(args json.RawMessage) string {
	var in BashInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "bash"
	}
	fields := strings.Fields(in.Command)
	if len(fields) == 0 {
		return "bash *"
	}
	return fields[0] + " *"
}

func (t *BashTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in BashInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	timeout := defaultBashTimeout
	if in.TimeoutMS > 0 {
		timeout = time.Duration(in.TimeoutMS) * time.Millisecond
		if timeout > maxBashTimeout {
			timeout = maxBashTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.shell, "-c", in.Command)
	cmd.Dir = toolCtx.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)
	if len(output) > maxBashOutput {
		output = output[:maxBashOutput] + "\n... (truncated)"
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return Fail(fmt.Sprintf("command timed out after %s", timeout)), nil
	}
	if err != nil {
		if output == "" {
			return Fail(err.Error()), nil
		}
		return Fail(fmt.Sprintf("%s\n%s", output, err)), nil
	}
	if output == "" {
		output = "(no output)"
	}
	return Ok(output), nil
}
