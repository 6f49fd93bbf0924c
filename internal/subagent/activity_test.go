package subagent

import (
	"testing"

	"github.com/llama-agent/llama-agent/internal/message"
)

func buildTranscriptFixture(t *testing.T) []message.Message {
	t.Helper()
	return []message.Message{
		message.NewSystem("you are an agent"),
		message.NewUser("# Task\n\ndo the thing"),
		message.NewAssistant(
			"working on it\n\n```json\n{\"summary\": \"done\"}\n```",
			[]message.ToolCall{
				{ID: "c1", Name: "write", Arguments: `{"file_path":"a.go","content":"package a"}`},
				{ID: "c2", Name: "bash", Arguments: `{"command":"go test ./..."}`},
				{ID: "c3", Name: "spawn_agent", Arguments: `{"agent_name":"explorer","task":"dig deeper"}`},
			},
		),
		message.NewToolResult("c1", `{"success":true,"output":"wrote a.go"}`),
		message.NewToolResult("c2", `{"success":true,"output":"ok"}`),
		message.NewToolResult("c3", `{"success":true,"output":"done","files_modified":["nested.go"],"commands_run":["go vet ./..."]}`),
		message.NewAssistant("all done", nil),
	}
}
