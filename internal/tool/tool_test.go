package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ListIsSortedByName(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	names := make([]string, 0)
	for _, tl := range r.List() {
		names = append(names, tl.Name())
	}
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}

func TestRegistry_ExecuteUnknownToolFails(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	_, err := r.Execute(context.Background(), "does_not_exist", json.RawMessage(`{}`), &Context{})
	require.Error(t, err)
}

func TestRegistry_ExecuteValidatesSchema(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	_, err := r.Execute(context.Background(), "read", json.RawMessage(`{}`), &Context{})
	require.Error(t, err, "read requires file_path")
}

func TestRegistry_Filter(t *testing.T) {
	r := DefaultRegistry(t.TempDir())
	filtered := r.Filter([]string{"read", "write"})
	require.Len(t, filtered, 2)

	all := r.Filter(nil)
	assert.Equal(t, len(r.List()), len(all))
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := DefaultRegistry(dir)
	tc := &Context{WorkDir: dir}

	res, err := r.Execute(context.Background(), "write", mustJSON(t, WriteInput{FilePath: "a.txt", Content: "hello\nworld"}), tc)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = r.Execute(context.Background(), "read", mustJSON(t, ReadInput{FilePath: "a.txt"}), tc)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "hello")
	assert.Contains(t, res.Output, "world")
}

func TestEditTool_FailsWhenOldStringMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	tl := NewEditTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, EditInput{FilePath: "a.txt", OldString: "nope", NewString: "x"}), &Context{WorkDir: dir})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestEditTool_FailsWhenAmbiguousWithoutReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x x x"), 0o644))

	tl := NewEditTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, EditInput{FilePath: "a.txt", OldString: "x", NewString: "y"}), &Context{WorkDir: dir})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestEditTool_ReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x x x"), 0o644))

	tl := NewEditTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, EditInput{FilePath: "a.txt", OldString: "x", NewString: "y", ReplaceAll: true}), &Context{WorkDir: dir})
	require.NoError(t, err)
	require.True(t, res.Success)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y y y", string(data))
}

func TestBashTool_ResourceKeyDerivesCommandFamily(t *testing.T) {
	tl := NewBashTool(t.TempDir())
	key := tl.ResourceKey(mustJSON(t, BashInput{Command: "git commit -m x"}))
	assert.Equal(t, "git *", key)
}

func TestBashTool_ExecuteCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	tl := NewBashTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, BashInput{Command: "echo hi"}), &Context{WorkDir: dir})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "hi")
}

func TestGlobTool_MatchesPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))

	tl := NewGlobTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, GlobInput{Pattern: "*.go"}), &Context{WorkDir: dir})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "a.go")
	assert.NotContains(t, res.Output, "b.txt")
}

func TestGrepTool_FindsMatchingLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\nfunc Foo() {}\n"), 0o644))

	tl := NewGrepTool(dir)
	res, err := tl.Execute(context.Background(), mustJSON(t, GrepInput{Pattern: "func Foo"}), &Context{WorkDir: dir})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "func Foo")
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
