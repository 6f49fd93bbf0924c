package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/store"
)

func testFile(t *testing.T) (*os.File, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "piped-input")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	return os.Open(path)
}

func newTestSession(t *testing.T) (*session, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	ctx, err := st.Create(time.Now())
	require.NoError(t, err)
	return &session{app: &app{store: st}, contextID: ctx.ID}, st
}

func TestResolvePrefix_NoMatch(t *testing.T) {
	sess, _ := newTestSession(t)
	_, err := resolvePrefix(sess, "zzzz")
	assert.Error(t, err)
}

func TestResolvePrefix_EmptyPrefix(t *testing.T) {
	sess, _ := newTestSession(t)
	_, err := resolvePrefix(sess, "")
	assert.Error(t, err)
}

func TestResolvePrefix_UniqueMatch(t *testing.T) {
	sess, st := newTestSession(t)
	other, err := st.Create(time.Now())
	require.NoError(t, err)

	id, err := resolvePrefix(sess, other.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, other.ID, id)
}

func TestResolvePrefix_AmbiguousMatch(t *testing.T) {
	sess, st := newTestSession(t)
	// UUIDv4's first nibble has only 16 possible values; creating 20
	// more contexts guarantees by pigeonhole that some single hex digit
	// prefix matches at least two contexts.
	for i := 0; i < 20; i++ {
		_, err := st.Create(time.Now())
		require.NoError(t, err)
	}

	hexDigits := "0123456789abcdef"
	var ambiguous bool
	for _, c := range hexDigits {
		if _, err := resolvePrefix(sess, string(c)); err != nil && strings.Contains(err.Error(), "be more specific") {
			ambiguous = true
			break
		}
	}
	assert.True(t, ambiguous, "expected at least one single hex-digit prefix to match >1 context out of 21")
}

func TestCmdDelete_RefusesCurrentContext(t *testing.T) {
	sess, _ := newTestSession(t)
	err := cmdDelete(sess, sess.contextID)
	assert.Error(t, err)
}

func TestCmdDelete_RemovesOtherContext(t *testing.T) {
	sess, st := newTestSession(t)
	other, err := st.Create(time.Now())
	require.NoError(t, err)

	require.NoError(t, cmdDelete(sess, other.ID))
	assert.False(t, st.Exists(other.ID))
}

func TestTruncatePreview_ShortPassesThrough(t *testing.T) {
	assert.Equal(t, "hello", truncatePreview("hello", 60))
}

func TestTruncatePreview_LongIsTruncatedWithEllipsis(t *testing.T) {
	s := truncatePreview("0123456789", 5)
	assert.Equal(t, "01...", s)
	assert.Len(t, s, 5)
}

func TestTruncatePreview_CollapsesNewlines(t *testing.T) {
	assert.Equal(t, "a b c", truncatePreview("a\nb\nc", 60))
}

func TestIsPiped_RegularFileCountsAsPiped(t *testing.T) {
	f, err := testFile(t)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, isPiped(f))
}
