package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	einotool "github.com/cloudwego/eino/components/tool"
)

const globDescription = `Fast file pattern matching.

Usage:
- Supports patterns like "**/*.go" or "src/**/*.ts"
- Returns matching file paths sorted by modification time, newest first`

const globSchema = `{
  "type": "object",
  "properties": {
    "pattern": {"type": "string"},
    "path": {"type": "string", "description": "directory to search, defaults to the working directory"}
  },
  "required": ["pattern"]
}`

// GlobInput is the glob tool's argument shape.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// GlobTool matches files by wildcard pattern, grounded on the
// teacher's internal/tool/glob.go but backed by
// github.com/bmatcuk/doublestar/v4 instead of shelling out to find.
type GlobTool struct {
	workDir string
}

func NewGlobTool(workDir string) *GlobTool { return &GlobTool{workDir: workDir} }

func (t *GlobTool) Name() string                    { return "glob" }
func (t *GlobTool) Description() string              { return globDescription }
func (t *GlobTool) Signature() string                { return "glob(pattern, path?)" }
func (t *GlobTool) Schema() json.RawMessage          { return json.RawMessage(globSchema) }
func (t *GlobTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in GlobInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	root := toolCtx.WorkDir
	if in.Path != "" {
		root = resolvePath(toolCtx.WorkDir, in.Path)
	}

	type match struct {
		path    string
		modTime int64
	}
	var matches []match

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		ok, err := doublestar.Match(in.Pattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, match{path: path, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return Fail(fmt.Sprintf("glob %s: %v", in.Pattern, err)), nil
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].modTime > matches[j].modTime })

	if len(matches) == 0 {
		return Ok("(no matches)"), nil
	}
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(m.path)
		b.WriteByte('\n')
	}
	return Ok(strings.TrimRight(b.String(), "\n")), nil
}
