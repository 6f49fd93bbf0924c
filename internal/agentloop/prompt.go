package agentloop

import (
	"fmt"
	"strings"

	"github.com/llama-agent/llama-agent/internal/tool"
)

const defaultSystemPrompt = `You are an autonomous coding agent. You work in a single working
directory, using the tools available to you to read, modify, and run
code on the user's behalf.

Investigate before you act: read the files you are about to change.
Make focused edits and explain what you changed and why when you are
done. If a requested action requires a tool you don't have, say so
instead of guessing.`

// AgentSummary is one entry of the available-agents XML section: the
// name and description of a subagent definition the model may spawn
// via the spawn_agent tool.
type AgentSummary struct {
	Name        string
	Description string
}

// buildSystemPrompt assembles message 0 of the transcript: the base
// prompt (custom or default), optionally a compact tool table, then
// any skills and available-agents sections.
func buildSystemPrompt(cfg Config, registry *tool.Registry) string {
	var parts []string

	base := cfg.CustomSystemPrompt
	if base == "" {
		base = defaultSystemPrompt
	}
	parts = append(parts, base)

	if !cfg.SkipToolTable {
		if table := toolTable(registry, cfg.AllowedTools); table != "" {
			parts = append(parts, table)
		}
	}

	if len(cfg.Skills) > 0 {
		parts = append(parts, "# Skills\n\n"+strings.Join(cfg.Skills, "\n\n"))
	}

	if len(cfg.AvailableAgents) > 0 {
		parts = append(parts, availableAgentsXML(cfg.AvailableAgents))
	}

	return strings.Join(parts, "\n\n")
}

// toolTable renders a compact markdown table of the tools a loop is
// allowed to call: name, signature, and the first sentence (or first
// 80 characters) of the description.
func toolTable(registry *tool.Registry, allowedTools []string) string {
	tools := registry.Filter(allowedTools)
	if len(tools) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Available Tools\n\n")
	b.WriteString("| Name | Signature | Description |\n")
	b.WriteString("|------|-----------|-------------|\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", t.Name(), t.Signature(), summarize(t.Description(), 80))
	}
	return strings.TrimRight(b.String(), "\n")
}

// summarize returns the first sentence of desc, or the first limit
// characters with an ellipsis if no sentence boundary appears first.
func summarize(desc string, limit int) string {
	desc = strings.TrimSpace(desc)
	if i := strings.IndexAny(desc, ".\n"); i >= 0 && i < limit {
		return desc[:i]
	}
	if len(desc) <= limit {
		return desc
	}
	return desc[:limit] + "..."
}

func availableAgentsXML(agents []AgentSummary) string {
	var b strings.Builder
	b.WriteString("<available_agents>\n")
	for _, a := range agents {
		fmt.Fprintf(&b, "  <agent name=%q description=%q/>\n", a.Name, a.Description)
	}
	b.WriteString("</available_agents>")
	return b.String()
}
