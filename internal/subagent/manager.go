// Package subagent implements hierarchical spawning of bounded child
// Agent Loops with a depth cap and context isolation from the parent.
package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/llama-agent/llama-agent/internal/agentdef"
	"github.com/llama-agent/llama-agent/internal/agentloop"
	"github.com/llama-agent/llama-agent/internal/errkind"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/stats"
	"github.com/llama-agent/llama-agent/internal/store"
	"github.com/llama-agent/llama-agent/internal/tool"
)

// maxSpawnDepth is the depth cap: a nested spawn that would reach
// this depth is rejected, so two levels of nesting beneath the
// top-level agent are allowed and a third is not.
const maxSpawnDepth = 3

// Request is the Subagent Manager's spawn(request, ...) input.
//
// Unlike the spec's prose, there is no explicit spawn_depth field: the
// same *Manager is threaded through every descendant as the spawner
// argument of agentloop.New ("subagent_mgr = self"), so the manager's own
// push/pop stack is the single source of truth for current depth —
// an explicit field would just be a second, easily-desynced copy of
// the same number. See DESIGN.md's Open Question decisions.
type Request struct {
	AgentName     string
	Task          string
	ContextJSON   string
	MaxIterations int // 0 means "use the agent definition's own MaxIterations"
	Persist       bool
	WorkingDir    string
}

// Result is the outcome of one subagent run.
type Result struct {
	Success        bool
	Output         string
	Iterations     int
	Stats          stats.Snapshot
	FilesModified  []string
	CommandsRun    []string
	Artifacts      []json.RawMessage
	FailureMessage string
}

// Manager owns the spawn-depth stack and the collaborators every
// child Agent Loop needs: the shared LLM backend, tool registry,
// permission manager, and agent registry.
type Manager struct {
	mu    sync.Mutex
	stack []int

	registry *agentdef.Registry
	tools    *tool.Registry
	backend  llm.Backend
	perm     *permission.Manager
	store    *store.Store // nil when persistence is unavailable/unused
	workDir  string
	log      zerolog.Logger
}

// New builds a Manager. store may be nil if no caller ever sets
// Request.Persist; workDir is the base for resolving relative
// working directories in spawn requests.
func New(
	registry *agentdef.Registry,
	tools *tool.Registry,
	backend llm.Backend,
	perm *permission.Manager,
	st *store.Store,
	workDir string,
	log zerolog.Logger,
) *Manager {
	return &Manager{
		registry: registry,
		tools:    tools,
		backend:  backend,
		perm:     perm,
		store:    st,
		workDir:  workDir,
		log:      log.With().Str("component", "subagent").Logger(),
	}
}

// Spawn implements tool.SubagentSpawner, adapting the spawn_agent
// tool's narrower request/result shape onto SpawnFull. Tool-triggered
// spawns never persist a context of their own.
func (m *Manager) Spawn(ctx context.Context, req tool.SpawnRequest) (tool.SpawnResult, error) {
	res, err := m.SpawnFull(ctx, Request{
		AgentName:   req.AgentName,
		Task:        req.Task,
		ContextJSON: req.ContextJSON,
		WorkingDir:  req.WorkingDir,
	})
	if err != nil {
		return tool.SpawnResult{}, err
	}
	return tool.SpawnResult{
		Success:       res.Success,
		Output:        res.Output,
		Iterations:    res.Iterations,
		FilesModified: res.FilesModified,
		CommandsRun:   res.CommandsRun,
		Artifacts:     res.Artifacts,
	}, nil
}

// SpawnFull resolves the agent definition, pushes a spawn depth,
// builds an isolated child Agent Loop, runs it to completion, and
// pops the depth again regardless of outcome.
func (m *Manager) SpawnFull(ctx context.Context, req Request) (Result, error) {
	depth, err := m.pushDepth()
	if err != nil {
		return Result{}, err
	}
	defer m.popDepth()

	def, ok := m.registry.Get(req.AgentName)
	if !ok {
		return Result{}, errkind.New(errkind.UnknownAgent, fmt.Errorf("unknown agent %q", req.AgentName))
	}

	workingDir, err := m.resolveWorkingDir(req.WorkingDir)
	if err != nil {
		return Result{}, err
	}

	// Isolate the child from the parent's cached transcript; the
	// parent's own transcript remains its source of truth and will be
	// reprocessed wholesale on its next completion.
	if err := m.backend.ClearCache(""); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear backend cache before spawn")
	}

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = def.MaxIterations
	}

	var contextID string
	var persist agentloop.PersistFunc
	if req.Persist && m.store != nil {
		st, err := m.store.Create(time.Now())
		if err != nil {
			return Result{}, errkind.New(errkind.IO, err)
		}
		contextID = st.ID
		persist = func(mm message.Message) error { return m.store.AppendMessage(contextID, mm) }
	}

	childPerm := permission.NewDelegating(m.perm)

	cfg := agentloop.Config{
		CustomSystemPrompt: def.Instructions,
		AllowedTools:       def.AllowedTools,
		MaxIterations:      maxIter,
		WorkingDir:         workingDir,
		ContextBasePath:    m.basePath(),
		ContextID:          contextID,
		AvailableAgents:    summarize(m.registry),
	}

	childLoop := agentloop.New(cfg, m.tools, m.backend, childPerm, stats.New(), m, m, persist, m.log)

	prompt := buildChildPrompt(req.Task, req.ContextJSON)
	runResult, err := childLoop.Run(ctx, prompt)

	if err := m.backend.ClearCache(""); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear backend cache after spawn")
	}

	if err != nil {
		msg := "Subagent encountered an error"
		m.log.Warn().Err(err).Str("agent", req.AgentName).Int("depth", depth).Msg(msg)
		return Result{Success: false, FailureMessage: msg, Output: msg}, nil
	}

	transcript := childLoop.Transcript()
	filesModified, commandsRun, artifacts := extractActivity(transcript)

	switch runResult.Stop {
	case agentloop.StopCompleted:
		return Result{
			Success:       true,
			Output:        runResult.FinalResponse,
			Iterations:    runResult.Iterations,
			FilesModified: filesModified,
			CommandsRun:   commandsRun,
			Artifacts:     artifacts,
		}, nil
	case agentloop.StopMaxIterations:
		msg := "Subagent reached max iterations"
		return Result{Success: false, FailureMessage: msg, Output: msg, Iterations: runResult.Iterations,
			FilesModified: filesModified, CommandsRun: commandsRun, Artifacts: artifacts}, nil
	case agentloop.StopUserCancelled:
		msg := "Subagent was cancelled"
		return Result{Success: false, FailureMessage: msg, Output: msg, Iterations: runResult.Iterations,
			FilesModified: filesModified, CommandsRun: commandsRun, Artifacts: artifacts}, nil
	default:
		msg := "Subagent encountered an error"
		return Result{Success: false, FailureMessage: msg, Output: msg}, nil
	}
}

func (m *Manager) pushDepth() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	depth := len(m.stack)
	if depth+1 >= maxSpawnDepth {
		return 0, errkind.New(errkind.SpawnDepthExceeded, fmt.Errorf("Maximum spawn depth (%d) exceeded", maxSpawnDepth))
	}
	m.stack = append(m.stack, depth+1)
	return depth + 1, nil
}

func (m *Manager) popDepth() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stack) > 0 {
		m.stack = m.stack[:len(m.stack)-1]
	}
}

func (m *Manager) basePath() string {
	if m.store == nil {
		return ""
	}
	return m.store.BasePath()
}

// LoadPlan implements tool.PlanReader so a spawned child can use the
// read_plan tool against the shared store.
func (m *Manager) LoadPlan(contextID string) (string, error) {
	if m.store == nil {
		return "", errkind.New(errkind.IO, fmt.Errorf("no context store configured"))
	}
	return m.store.LoadPlan(contextID)
}

// resolveWorkingDir resolves dir against the manager's working
// directory if relative, and fails unless the result is an existing
// directory.
func (m *Manager) resolveWorkingDir(dir string) (string, error) {
	if dir == "" {
		dir = m.workDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.workDir, dir)
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errkind.New(errkind.InvalidWorkingDir, fmt.Errorf("working directory %q does not exist", dir))
	}
	return dir, nil
}

func summarize(registry *agentdef.Registry) []agentloop.AgentSummary {
	defs := registry.List()
	out := make([]agentloop.AgentSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, agentloop.AgentSummary{Name: d.Name, Description: d.Description})
	}
	return out
}

func buildChildPrompt(task, contextJSON string) string {
	prompt := "# Task\n\n" + task
	if contextJSON != "" {
		pretty := contextJSON
		var doc any
		if err := json.Unmarshal([]byte(contextJSON), &doc); err == nil {
			if b, err := json.MarshalIndent(doc, "", "  "); err == nil {
				pretty = string(b)
			}
		}
		prompt += "\n\n## Context\n\n```json\n" + pretty + "\n```"
	}
	return prompt
}
