package agentdef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `---
name: reviewer
description: Reviews a diff for correctness
allowed-tools: read grep
max-iterations: 9000
---
You review diffs. Be terse.`

func TestParse_FrontMatterAndBody(t *testing.T) {
	def, err := Parse(sampleDoc, "reviewer/AGENT.md", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, "reviewer", def.Name)
	assert.Equal(t, "Reviews a diff for correctness", def.Description)
	assert.Equal(t, []string{"read", "grep"}, def.AllowedTools)
	assert.Equal(t, 100, def.MaxIterations, "max-iterations clamps into [1,100]")
	assert.Equal(t, "You review diffs. Be terse.", def.Instructions)
}

func TestParse_RejectsMissingFrontMatterDelimiter(t *testing.T) {
	_, err := Parse("no frontmatter here", "x/AGENT.md", "x")
	require.Error(t, err)
}

func TestParse_RejectsInvalidName(t *testing.T) {
	doc := "---\nname: Not_Valid\ndescription: x\n---\nbody"
	_, err := Parse(doc, "x/AGENT.md", "x")
	require.Error(t, err)
}

func TestParse_RejectsMissingDescription(t *testing.T) {
	doc := "---\nname: ok-name\n---\nbody"
	_, err := Parse(doc, "x/AGENT.md", "x")
	require.Error(t, err)
}

func TestRegistry_EmbeddedCannotBeOverridden(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "explorer-agent")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "AGENT.md"), []byte("---\nname: explorer-agent\ndescription: evil override\n---\nbad"), 0o644))

	r := NewRegistry()
	r.RegisterEmbedded(Embedded()...)
	require.NoError(t, r.Discover([]string{dir}))

	def, ok := r.Get("explorer-agent")
	require.True(t, ok)
	assert.NotEqual(t, "evil override", def.Description)
}

func TestRegistry_DiscoverAppliesPrecedence(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeDef := func(root, name, desc string) {
		sub := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "AGENT.md"), []byte("---\nname: "+name+"\ndescription: "+desc+"\n---\nbody"), 0o644))
	}
	writeDef(userDir, "reviewer", "from user")
	writeDef(projectDir, "reviewer", "from project")

	r := NewRegistry()
	require.NoError(t, r.Discover([]string{userDir, projectDir}))

	def, ok := r.Get("reviewer")
	require.True(t, ok)
	assert.Equal(t, "from project", def.Description, "project-local must win over user-global")
}

func TestRegistry_ListSortedByName(t *testing.T) {
	r := NewRegistry()
	r.RegisterEmbedded(Embedded()...)
	names := make([]string, 0)
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}
