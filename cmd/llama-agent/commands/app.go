package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/llama-agent/llama-agent/internal/agentdef"
	"github.com/llama-agent/llama-agent/internal/agentloop"
	"github.com/llama-agent/llama-agent/internal/cliprompt"
	"github.com/llama-agent/llama-agent/internal/config"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/stats"
	"github.com/llama-agent/llama-agent/internal/store"
	"github.com/llama-agent/llama-agent/internal/subagent"
	"github.com/llama-agent/llama-agent/internal/tool"
)

// errAborted marks a run ended by a signal, mapped to exit code 130 by
// Execute.
var errAborted = aborted{}

type aborted struct{}

func (aborted) Error() string { return "aborted" }

// app bundles the wiring every subcommand needs: the agent registry,
// tool registry, permission manager, context store, and the LLM
// backend, assembled once from resolved flags/config.
type app struct {
	workDir  string
	cfg      *config.Config
	paths    *config.Paths
	registry *agentdef.Registry
	tools    *tool.Registry
	perm     *permission.Manager
	store    *store.Store
	backend  llm.Backend
	subagent *subagent.Manager
	log      zerolog.Logger
}

func newApp(cmdWorkingDir string) (*app, error) {
	workDir, err := GetWorkDir(cmdWorkingDir)
	if err != nil {
		return nil, err
	}
	cfg, paths, err := buildConfig(workDir)
	if err != nil {
		return nil, err
	}

	registry := agentdef.NewRegistry()
	registry.RegisterEmbedded(agentdef.Embedded()...)
	searchPaths := []string{config.UserAgentsDir(), paths.ProjectAgentsDir()}
	if err := registry.Discover(searchPaths); err != nil {
		return nil, err
	}

	tools := tool.DefaultRegistry(workDir)

	log := newLogger()
	prompter := permission.Prompter(newTerminalPrompter())
	perm := permission.New(prompter, cfg.YoloMode, log)

	st := store.New(paths.DataDir)

	ctx := context.Background()
	backend, err := llm.NewOpenAIBackend(ctx, llm.OpenAIConfig{})
	if err != nil {
		return nil, err
	}

	subagents := subagent.New(registry, tools, backend, perm, st, workDir, log)

	return &app{
		workDir:  workDir,
		cfg:      cfg,
		paths:    paths,
		registry: registry,
		tools:    tools,
		perm:     perm,
		store:    st,
		backend:  backend,
		subagent: subagents,
		log:      log,
	}, nil
}

// availableAgents lists subagent-eligible definitions for the system
// prompt's available-agents XML section.
func (a *app) availableAgents() []agentloop.AgentSummary {
	defs := a.registry.List()
	out := make([]agentloop.AgentSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, agentloop.AgentSummary{Name: d.Name, Description: d.Description})
	}
	return out
}

// skillsContent reads every configured skills-path directory's files
// into a flat list of strings for Config.Skills, unless --no-skills
// is set.
func (a *app) skillsContent() []string {
	if a.cfg.NoSkills {
		return nil
	}
	var out []string
	for _, dir := range a.cfg.SkillsPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			out = append(out, string(data))
		}
	}
	return out
}

func (a *app) newLoopConfig(contextID string, agentCfg *agentdef.Definition) agentloop.Config {
	cfg := agentloop.Config{
		WorkingDir:      a.workDir,
		ContextBasePath: a.store.BasePath(),
		ContextID:       contextID,
		Skills:          a.skillsContent(),
		AvailableAgents: a.availableAgents(),
	}
	if a.cfg.MaxIterations > 0 {
		cfg.MaxIterations = a.cfg.MaxIterations
	}
	if agentCfg != nil {
		cfg.CustomSystemPrompt = agentCfg.Instructions
		cfg.AllowedTools = agentCfg.AllowedTools
		if cfg.MaxIterations == 0 {
			cfg.MaxIterations = agentCfg.MaxIterations
		}
	}
	return cfg
}

// persistFunc mirrors every transcript append into the context store.
// The agent loop itself logs and swallows a returned error, so this
// just forwards it.
func (a *app) persistFunc(contextID string) agentloop.PersistFunc {
	return func(m message.Message) error {
		return a.store.AppendMessage(contextID, m)
	}
}

// newLoop builds a top-level (non-subagent) agent loop bound to
// contextID.
func (a *app) newLoop(contextID string) *agentloop.Loop {
	cfg := a.newLoopConfig(contextID, nil)
	return agentloop.New(cfg, a.tools, a.backend, a.perm, stats.New(), a.subagent, a.subagent, a.persistFunc(contextID), a.log)
}

func newTerminalPrompter() *cliprompt.TerminalPrompter {
	return cliprompt.NewTerminalPrompter(os.Stdin, os.Stdout)
}
