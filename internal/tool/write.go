package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	einotool "github.com/cloudwego/eino/components/tool"
)

const writeDescription = `Writes content to a file on the local filesystem.

Usage:
- The file_path parameter may be absolute or relative to the working directory
- This tool overwrites existing files
- Parent directories are created if they don't exist`

const writeSchema = `{
  "type": "object",
  "properties": {
    "file_path": {"type": "string", "description": "path to write to"},
    "content": {"type": "string", "description": "full content to write"}
  },
  "required": ["file_path", "content"]
}`

// WriteInput is the write tool's argument shape.
type WriteInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// WriteTool writes a file's full contents.
type WriteTool struct {
	workDir string
}

func NewWriteTool(workDir string) *WriteTool { return &WriteTool{workDir: workDir} }

func (t *WriteTool) Name() string                    { return "write" }
func (t *WriteTool) Description() string              { return writeDescription }
func (t *WriteTool) Signature() string                { return "write(file_path, content)" }
func (t *WriteTool) Schema() json.RawMessage          { return json.RawMessage(writeSchema) }
func (t *WriteTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *WriteTool) ResourceKey(args json.RawMessage) string {
	var in WriteInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "write"
	}
	return in.FilePath
}

func (t *WriteTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in WriteInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	path := resolvePath(toolCtx.WorkDir, in.FilePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Fail(fmt.Sprintf("write %s: %v", in.FilePath, err)), nil
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return Fail(fmt.Sprintf("write %s: %v", in.FilePath, err)), nil
	}
	return Ok(fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.FilePath)), nil
}
