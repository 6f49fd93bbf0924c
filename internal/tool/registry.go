package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/llama-agent/llama-agent/internal/errkind"
)

// Registry is a process-wide catalog keyed by tool name. Registration
// is push-only during process initialization; once the main loop
// begins the registry is treated as immutable (no Unregister is
// exposed).
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool, compiling its JSON schema eagerly so a
// malformed schema fails at startup rather than on first call.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	compiler := jsonschema.NewCompiler()
	schemaURL := "mem://" + t.Name() + ".json"
	var doc any
	if err := json.Unmarshal(t.Schema(), &doc); err != nil {
		return errkind.New(errkind.InvalidConfig, fmt.Errorf("tool %s: invalid schema: %w", t.Name(), err))
	}
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return errkind.New(errkind.InvalidConfig, fmt.Errorf("tool %s: add schema resource: %w", t.Name(), err))
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return errkind.New(errkind.InvalidConfig, fmt.Errorf("tool %s: compile schema: %w", t.Name(), err))
	}

	r.tools[t.Name()] = t
	r.compiled[t.Name()] = compiled
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool sorted by name, so system-prompt
// tool tables are deterministic.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Tool, len(names))
	for i, n := range names {
		out[i] = r.tools[n]
	}
	return out
}

// Filter returns the subset of List() whose names appear in allowed.
// An empty allowed list means "all tools".
func (r *Registry) Filter(allowed []string) []Tool {
	all := r.List()
	if len(allowed) == 0 {
		return all
	}
	set := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		set[n] = true
	}
	out := make([]Tool, 0, len(allowed))
	for _, t := range all {
		if set[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

// ValidateArgs checks args against the tool's compiled JSON schema.
func (r *Registry) ValidateArgs(name string, args json.RawMessage) error {
	r.mu.RLock()
	compiled, ok := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		return errkind.New(errkind.UnknownTool, fmt.Errorf("unknown tool %q", name))
	}

	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return errkind.New(errkind.Parse, fmt.Errorf("parse arguments for %s: %w", name, err))
	}
	if err := compiled.Validate(doc); err != nil {
		return errkind.New(errkind.Parse, fmt.Errorf("validate arguments for %s: %w", name, err))
	}
	return nil
}

// Execute validates args against the tool's schema, then runs it.
// Execute fails with errkind.UnknownTool when name is absent from the
// registry.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, toolCtx *Context) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, errkind.New(errkind.UnknownTool, fmt.Errorf("unknown tool %q", name))
	}
	if err := r.ValidateArgs(name, args); err != nil {
		return nil, err
	}
	return t.Execute(ctx, args, toolCtx)
}

// EinoTools returns every registered tool bridged to eino's
// InvokableTool, using toolCtx to build the Tool Context any
// eino-driven (in-process) call should run with.
func (r *Registry) EinoTools(toolCtx func() *Context) []einotool.BaseTool {
	tools := r.List()
	out := make([]einotool.BaseTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, newEinoTool(t, toolCtx))
	}
	return out
}

// ToolInfos returns eino ToolInfo for the given tools, used to build a
// CompletionRequest's Tools field.
func ToolInfos(tools []Tool) []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, &schema.ToolInfo{
			Name:        t.Name(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(parseJSONSchemaToParams(t.Schema())),
		})
	}
	return out
}
