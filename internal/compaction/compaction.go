// Package compaction implements the archive-then-summarize rewrite the
// `/compact` slash command triggers on a context's transcript: the
// raw messages move to a timestamped archive, a CompactEntry captures
// the extracted and LLM-summarized activity, and the live transcript
// is replaced by a single system message rendering that entry.
package compaction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/llama-agent/llama-agent/internal/errkind"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/store"
)

const summarizerSystemPrompt = `You are a conversation summarizer for a coding agent. Produce a
concise summary of the conversation that preserves key context for
continuing the work.

You may respond with plain text, which becomes the summary verbatim,
or with a fenced json block of the form:

` + "```json" + `
{"summary": "...", "key_decisions": ["..."], "current_state": "...", "pending_tasks": ["..."]}
` + "```"

var fencedJSON = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")

type payload struct {
	Summary      string   `json:"summary"`
	KeyDecisions []string `json:"key_decisions"`
	CurrentState string   `json:"current_state"`
	PendingTasks []string `json:"pending_tasks"`
}

// Run executes one compaction: extract programmatic fields from
// messages, ask backend for a summary, and persist the result through
// st.Compact. directive, if non-empty, is the user's `/compact
// <directive>` free-form steering text.
func Run(ctx context.Context, backend llm.Backend, st *store.Store, contextID string, messages []message.Message, directive string) (store.CompactEntry, error) {
	userMessages, files, commands := extractActivity(messages)

	prompt := buildPrompt(messages, directive)
	req := &llm.CompletionRequest{
		Messages: []*schema.Message{
			{Role: schema.System, Content: summarizerSystemPrompt},
			{Role: schema.User, Content: prompt},
		},
	}
	res, err := backend.Complete(ctx, req)
	if err != nil {
		return store.CompactEntry{}, errkind.New(errkind.BackendFailed, fmt.Errorf("compaction summary: %w", err))
	}

	p := parseSummary(res.Message.Content)
	entry := store.CompactEntry{
		UserMessages:  userMessages,
		FilesModified: files,
		CommandsRun:   commands,
		Summary:       p.Summary,
		KeyDecisions:  p.KeyDecisions,
		CurrentState:  p.CurrentState,
		PendingTasks:  p.PendingTasks,
	}

	if err := st.Compact(contextID, entry); err != nil {
		return store.CompactEntry{}, err
	}
	return entry, nil
}

func buildPrompt(messages []message.Message, directive string) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation, focusing on:\n")
	b.WriteString("1. Key decisions and outcomes\n")
	b.WriteString("2. Files that were modified\n")
	b.WriteString("3. Important context for continuing the work\n\n")
	if strings.TrimSpace(directive) != "" {
		fmt.Fprintf(&b, "Pay particular attention to: %s\n\n", directive)
	}
	b.WriteString("---\n\n")
	for _, m := range messages {
		switch m.Role {
		case message.RoleUser:
			b.WriteString("USER:\n" + m.Content + "\n\n")
		case message.RoleAssistant:
			b.WriteString("ASSISTANT:\n" + m.Content + "\n\n")
		}
	}
	return b.String()
}

// extractActivity walks the transcript collecting every user message's
// content, every write/edit file_path, and every bash command, in
// first-seen order, mirroring the subagent manager's own transcript
// scan (internal/subagent/activity.go) at the whole-context scope.
func extractActivity(messages []message.Message) (userMessages, files, commands []string) {
	seenFile := map[string]bool{}
	seenCmd := map[string]bool{}
	for _, m := range messages {
		if m.Role == message.RoleUser {
			userMessages = append(userMessages, m.Content)
		}
		for _, call := range m.ToolCalls {
			switch call.Name {
			case "write", "edit":
				if p, ok := stringField(call.Arguments, "file_path"); ok && !seenFile[p] {
					seenFile[p] = true
					files = append(files, p)
				}
			case "bash":
				if c, ok := stringField(call.Arguments, "command"); ok && !seenCmd[c] {
					seenCmd[c] = true
					commands = append(commands, c)
				}
			}
		}
	}
	return userMessages, files, commands
}

func stringField(rawArgs, field string) (string, bool) {
	var probe map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &probe); err != nil {
		return "", false
	}
	v, ok := probe[field].(string)
	return v, ok
}

func parseSummary(reply string) payload {
	trimmed := strings.TrimSpace(reply)

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		var p payload
		if json.Unmarshal([]byte(m[1]), &p) == nil && p.Summary != "" {
			return p
		}
	}

	var p payload
	if json.Unmarshal([]byte(trimmed), &p) == nil && p.Summary != "" {
		return p
	}

	return payload{Summary: trimmed}
}
