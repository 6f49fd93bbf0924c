package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const readDescription = `Reads a file from the local filesystem.

Usage:
- The file_path parameter must be an absolute path, or relative to the working directory
- By default, reads up to 2000 lines from the beginning
- Optionally specify offset and limit for pagination
- Returns file contents with line numbers`

const readSchema = `{
  "type": "object",
  "properties": {
    "file_path": {"type": "string", "description": "path to the file to read"},
    "offset": {"type": "integer", "description": "0-based line to start from"},
    "limit": {"type": "integer", "description": "maximum number of lines to return"}
  },
  "required": ["file_path"]
}`

const maxReadLines = 2000

// ReadInput is the read tool's argument shape.
type ReadInput struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// ReadTool reads a file's contents with line numbers, grounded on the
// teacher's internal/tool/read.go.
type ReadTool struct {
	workDir string
}

func NewReadTool(workDir string) *ReadTool { return &ReadTool{workDir: workDir} }

func (t *ReadTool) Name() string        { return "read" }
func (t *ReadTool) Description() string { return readDescription }
func (t *ReadTool) Signature() string   { return "read(file_path, offset?, limit?)" }
func (t *ReadTool) Schema() json.RawMessage { return json.RawMessage(readSchema) }
func (t *ReadTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *ReadTool) ResourceKey(args json.RawMessage) string {
	var in ReadInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "read"
	}
	return in.FilePath
}

func (t *ReadTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in ReadInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	path := resolvePath(toolCtx.WorkDir, in.FilePath)
	f, err := os.Open(path)
	if err != nil {
		return Fail(fmt.Sprintf("read %s: %v", in.FilePath, err)), nil
	}
	defer f.Close()

	limit := in.Limit
	if limit <= 0 {
		limit = maxReadLines
	}

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	emitted := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= in.Offset {
			continue
		}
		if emitted >= limit {
			break
		}
		fmt.Fprintf(&b, "%6d\t%s\n", lineNo, scanner.Text())
		emitted++
	}
	if err := scanner.Err(); err != nil {
		return Fail(fmt.Sprintf("read %s: %v", in.FilePath, err)), nil
	}
	if emitted == 0 {
		return Ok("(file is empty or offset is beyond end of file)"), nil
	}
	return Ok(b.String()), nil
}

func resolvePath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workDir, p)
}
