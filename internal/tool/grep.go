package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	einotool "github.com/cloudwego/eino/components/tool"
)

const grepDescription = `Searches file contents using a regular expression.

Usage:
- pattern is a Go regular expression
- Optionally restrict to files matching the include glob (e.g. "*.go")
- Returns matching lines with file paths and line numbers`

const grepSchema = `{
  "type": "object",
  "properties": {
    "pattern": {"type": "string"},
    "path": {"type": "string"},
    "include": {"type": "string", "description": "glob filter, e.g. *.go"}
  },
  "required": ["pattern"]
}`

// GrepInput is the grep tool's argument shape.
type GrepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"`
}

// GrepTool searches file contents by regular expression, implemented
// with stdlib regexp plus doublestar glob filtering rather than
// shelling out to an external ripgrep binary that may not be on PATH.
type GrepTool struct {
	workDir string
}

func NewGrepTool(workDir string) *GrepTool { return &GrepTool{workDir: workDir} }

func (t *GrepTool) Name() string                    { return "grep" }
func (t *GrepTool) Description() string              { return grepDescription }
func (t *GrepTool) Signature() string                { return "grep(pattern, path?, include?)" }
func (t *GrepTool) Schema() json.RawMessage          { return json.RawMessage(grepSchema) }
func (t *GrepTool) EinoTool() einotool.InvokableTool { return newEinoTool(t, nil) }

func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	var in GrepInput
	if err := json.Unmarshal(args, &in); err != nil {
		return Fail(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	re, err := regexp.Compile(in.Pattern)
	if err != nil {
		return Fail(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	root := toolCtx.WorkDir
	if in.Path != "" {
		root = resolvePath(toolCtx.WorkDir, in.Path)
	}

	var b strings.Builder
	hits := 0
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.Contains(path, string(filepath.Separator)+".git"+string(filepath.Separator)) {
			return nil
		}
		if in.Include != "" {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			ok, matchErr := doublestar.Match(in.Include, filepath.ToSlash(rel))
			if matchErr != nil || !ok {
				return nil
			}
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if re.MatchString(scanner.Text()) {
				fmt.Fprintf(&b, "%s:%d:%s\n", path, lineNo, scanner.Text())
				hits++
			}
		}
		return nil
	})
	if err != nil {
		return Fail(fmt.Sprintf("grep %s: %v", in.Pattern, err)), nil
	}
	if hits == 0 {
		return Ok("(no matches)"), nil
	}
	return Ok(strings.TrimRight(b.String(), "\n")), nil
}
