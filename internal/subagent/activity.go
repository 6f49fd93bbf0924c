package subagent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/llama-agent/llama-agent/internal/message"
)

const commandPreviewLimit = 200

// fencedJSONBlock matches a ```json ... ``` fenced block, scanning
// assistant content for structured asides.
var fencedJSONBlock = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")

type spawnAgentResult struct {
	FilesModified []string          `json:"files_modified,omitempty"`
	CommandsRun   []string          `json:"commands_run,omitempty"`
	Artifacts     []json.RawMessage `json:"artifacts,omitempty"`
}

// extractActivity derives files_modified, commands_run, and artifacts
// from a completed child transcript: artifacts come from fenced json
// blocks in assistant content that are not a Q&A payload;
// files_modified/commands_run come from write/edit/bash call
// arguments, recursively unioned with whatever a nested spawn_agent
// call reported in its own tool-result message.
func extractActivity(transcript []message.Message) (filesModified, commandsRun []string, artifacts []json.RawMessage) {
	replies := make(map[string]string, len(transcript))
	for _, m := range transcript {
		if m.Role == message.RoleTool {
			replies[m.ToolCallID] = m.Content
		}
	}

	seenFiles := make(map[string]bool)
	seenCommands := make(map[string]bool)

	addFile := func(f string) {
		if f != "" && !seenFiles[f] {
			seenFiles[f] = true
			filesModified = append(filesModified, f)
		}
	}
	addCommand := func(c string) {
		if c != "" && !seenCommands[c] {
			seenCommands[c] = true
			commandsRun = append(commandsRun, c)
		}
	}

	for _, m := range transcript {
		if m.Role == message.RoleAssistant {
			artifacts = append(artifacts, extractArtifacts(m.Content)...)
		}
		if m.Role != message.RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls {
			switch call.Name {
			case "write", "edit":
				var args struct {
					FilePath string `json:"file_path"`
				}
				if json.Unmarshal([]byte(call.Arguments), &args) == nil {
					addFile(args.FilePath)
				}
			case "bash":
				var args struct {
					Command string `json:"command"`
				}
				if json.Unmarshal([]byte(call.Arguments), &args) == nil {
					addCommand(truncate(args.Command, commandPreviewLimit))
				}
			case "spawn_agent":
				reply, ok := replies[call.ID]
				if !ok {
					continue
				}
				var nested spawnAgentResult
				if json.Unmarshal([]byte(reply), &nested) != nil {
					continue
				}
				for _, f := range nested.FilesModified {
					addFile(f)
				}
				for _, c := range nested.CommandsRun {
					addCommand(c)
				}
				artifacts = append(artifacts, nested.Artifacts...)
			}
		}
	}
	return filesModified, commandsRun, artifacts
}

// extractArtifacts scans content for fenced json blocks, skipping any
// that decode to an object carrying a "questions" key (the Q&A
// payload belongs to the planning workflow, not to artifact capture).
func extractArtifacts(content string) []json.RawMessage {
	var out []json.RawMessage
	for _, match := range fencedJSONBlock.FindAllStringSubmatch(content, -1) {
		raw := strings.TrimSpace(match[1])
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &probe); err != nil {
			continue
		}
		if _, hasQuestions := probe["questions"]; hasQuestions {
			continue
		}
		out = append(out, json.RawMessage(raw))
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
