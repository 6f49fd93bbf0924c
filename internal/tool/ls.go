package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const lsDescription = `Lists files and directories in a path.

Usage:
- path defaults to the working directory
- Returns names, types, and sizes`

const lsSchema = `{
  "type": "object",
  "properties": {
    "path": {"type": "string"},
    "ignore": {"type": "array", "items": {"type": "string"}}
  }
}`

var defaultIgnoreDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".git": true,
	"dist": true, "build": true, "target": true, "vendor": true,
}

// LSInput is the ls tool's argument shape.
type LSInput struct {
	Path   string   `json:"path,omitempty"`
	Ignore []string `json:"ignore,omitempty"`
}

// LSTool lists a directory's immediate entries, grounded on the
// teacher's internal/tool/list.go.
type LSTool struct {
	workDir string
}

func NewLSTool(workDir string) *LSTool { return &LSTool{workDir: workDir} }

func (t *LSTool) Name() string                    { return "ls" }
func (t *LSTool) Description() string              { return lsDescription }
func (t *LSTool) Signature() string                { return "ls(path?, ignore?)" }
func (t *LSTool) Schema() json.RawMessage          { return json.RawMessage(lsSchema) }
func (t *LSTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *LSTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in LSInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}

	root := toolCtx.WorkDir
	if in.Path != "" {
		root = resolvePath(toolCtx.WorkDir, in.Path)
	}
	ignore := make(map[string]bool, len(in.Ignore))
	for _, p := range in.Ignore {
		ignore[p] = true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return Fail(fmt.Sprintf("ls %s: %v", in.Path, err)), nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if defaultIgnoreDirs[name] || ignore[name] {
			continue
		}
		info, err := os.Lstat(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if info.IsDir() {
			fmt.Fprintf(&b, "%s/\n", name)
		} else {
			fmt.Fprintf(&b, "%s\t%d bytes\n", name, info.Size())
		}
	}
	if b.Len() == 0 {
		return Ok("(empty directory)"), nil
	}
	return Ok(strings.TrimRight(b.String(), "\n")), nil
}
