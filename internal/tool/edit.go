package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const editDescription = `Performs exact string replacements in a file.

Usage:
- The old_string must exist in the file (exact match required)
- The edit fails if old_string is not unique, unless replace_all is set
- Use replace_all to replace every occurrence`

const editSchema = `{
  "type": "object",
  "properties": {
    "file_path": {"type": "string"},
    "old_string": {"type": "string"},
    "new_string": {"type": "string"},
    "replace_all": {"type": "boolean"}
  },
  "required": ["file_path", "old_string", "new_string"]
}`

// EditInput is the edit tool's argument shape.
type EditInput struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// EditTool performs exact string replacement within a file: no fuzzy
// match, no "did you mean" suggestion surface, fail on an ambiguous or
// absent match.
type EditTool struct {
	workDir string
}

func NewEditTool(workDir string) *EditTool { return &EditTool{workDir: workDir} }

func (t *EditTool) Name() string                    { return "edit" }
func (t *EditTool) Description() string              { return editDescription }
func (t *EditTool) Signature() string                { return "edit(file_path, old_string, new_string, replace_all?)" }
func (t *EditTool) Schema() json.RawMessage          { return json.RawMessage(editSchema) }
func (t *EditTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *EditTool) ResourceKey(args json.RawMessage) string {
	var in EditInput
	if err := json.Unmarshal(args, &in); err != nil {
		return "edit"
	}
	return in.FilePath
}

func (t *EditTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in EditInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	path := resolvePath(toolCtx.WorkDir, in.FilePath)
	data, err := os.ReadFile(path)
	if err != nil {
		return Fail(fmt.Sprintf("edit %s: %v", in.FilePath, err)), nil
	}
	content := string(data)

	count := strings.Count(content, in.OldString)
	if count == 0 {
		return Fail(fmt.Sprintf("old_string not found in %s", in.FilePath)), nil
	}
	if count > 1 && !in.ReplaceAll {
		return Fail(fmt.Sprintf("old_string is not unique in %s (%d occurrences); set replace_all", in.FilePath, count)), nil
	}

	var updated string
	if in.ReplaceAll {
		updated = strings.ReplaceAll(content, in.OldString, in.NewString)
	} else {
		updated = strings.Replace(content, in.OldString, in.NewString, 1)
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Fail(fmt.Sprintf("edit %s: %v", in.FilePath, err)), nil
	}
	return Ok(fmt.Sprintf("replaced %d occurrence(s) in %s", count, in.FilePath)), nil
}
