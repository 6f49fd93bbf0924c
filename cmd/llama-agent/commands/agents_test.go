package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llama-agent/llama-agent/internal/agentdef"
)

func TestRenderAgents_Empty(t *testing.T) {
	assert.Equal(t, "No agents registered.", renderAgents(agentdef.NewRegistry()))
}

func TestRenderAgents_ListsRegisteredDefinitions(t *testing.T) {
	reg := agentdef.NewRegistry()
	reg.RegisterEmbedded(&agentdef.Definition{Name: "explorer", Description: "gathers context"})

	out := renderAgents(reg)
	assert.Contains(t, out, "explorer")
	assert.Contains(t, out, "gathers context")
}
