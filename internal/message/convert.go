package message

import (
	"github.com/cloudwego/eino/schema"
)

// ToEino converts a transcript into the wire format the LLM backend
// interface exchanges (github.com/cloudwego/eino/schema.Message).
func ToEino(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, toEinoOne(m))
	}
	return out
}

func toEinoOne(m Message) *schema.Message {
	role := schema.Assistant
	switch m.Role {
	case RoleUser:
		role = schema.User
	case RoleSystem:
		role = schema.System
	case RoleTool:
		role = schema.Tool
	}

	em := &schema.Message{
		Role:    role,
		Content: m.Content,
	}
	if m.ToolCallID != "" {
		em.ToolCallID = m.ToolCallID
	}
	for _, tc := range m.ToolCalls {
		em.ToolCalls = append(em.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return em
}

// FromEino converts a single backend response message back into the
// core's Message type.
func FromEino(em *schema.Message) Message {
	role := RoleAssistant
	switch em.Role {
	case schema.User:
		role = RoleUser
	case schema.System:
		role = RoleSystem
	case schema.Tool:
		role = RoleTool
	}

	m := Message{
		Role:       role,
		Content:    em.Content,
		ToolCallID: em.ToolCallID,
	}
	for _, tc := range em.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return m
}
