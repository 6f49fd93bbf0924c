package permission

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_YoloModeShortCircuits(t *testing.T) {
	p := &MockPrompter{Answer: AnswerDeny}
	m := New(p, true, zerolog.Nop())

	action, err := m.Decide(context.Background(), "bash", "rm -rf /", "run rm")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Empty(t, p.Requests)
}

func TestManager_PromptsOnceThenMemoizesAlways(t *testing.T) {
	p := &MockPrompter{Answer: AnswerAlways}
	m := New(p, false, zerolog.Nop())

	action, err := m.Decide(context.Background(), "bash", "git status", "run git status")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Len(t, p.Requests, 1)

	action, err = m.Decide(context.Background(), "bash", "git status", "run git status")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Len(t, p.Requests, 1, "second identical decision must not re-prompt")
}

func TestManager_OnceDoesNotMemoize(t *testing.T) {
	p := &MockPrompter{Answer: AnswerOnce}
	m := New(p, false, zerolog.Nop())

	_, err := m.Decide(context.Background(), "edit", "main.go", "edit main.go")
	require.NoError(t, err)
	_, err = m.Decide(context.Background(), "edit", "main.go", "edit main.go")
	require.NoError(t, err)
	assert.Len(t, p.Requests, 2, "a one-time allow must re-prompt next time")
}

func TestManager_DenyReturnsDeniedError(t *testing.T) {
	p := &MockPrompter{Answer: AnswerDeny}
	m := New(p, false, zerolog.Nop())

	action, err := m.Decide(context.Background(), "bash", "rm -rf /", "run rm")
	require.Error(t, err)
	assert.Equal(t, Deny, action)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
}

func TestManager_WildcardPatternMemoization(t *testing.T) {
	p := &MockPrompter{Answer: AnswerAlways}
	m := New(p, false, zerolog.Nop())
	m.remember("bash", "git *", Allow)

	action, err := m.Decide(context.Background(), "bash", "git commit -m x", "run git commit")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Empty(t, p.Requests, "a wildcard cache entry must satisfy a matching resource key without prompting")
}

func TestDelegatingManager_SharesParentCache(t *testing.T) {
	p := &MockPrompter{Answer: AnswerAlways}
	parent := New(p, false, zerolog.Nop())
	child := NewDelegating(parent)

	_, err := parent.Decide(context.Background(), "bash", "ls -la", "list files")
	require.NoError(t, err)

	action, err := child.Decide(context.Background(), "bash", "ls -la", "list files")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Len(t, p.Requests, 1, "child must see the parent's memoized decision")
}

func TestDelegatingManager_ChildDecisionsWriteThroughToParent(t *testing.T) {
	p := &MockPrompter{Answer: AnswerAlways}
	parent := New(p, false, zerolog.Nop())
	child := NewDelegating(parent)

	_, err := child.Decide(context.Background(), "edit", "a.go", "edit a.go")
	require.NoError(t, err)

	action, err := parent.Decide(context.Background(), "edit", "a.go", "edit a.go")
	require.NoError(t, err)
	assert.Equal(t, Allow, action)
	assert.Len(t, p.Requests, 1, "parent must see the child's memoized decision")
}
