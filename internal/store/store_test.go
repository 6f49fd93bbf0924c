package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/message"
)

func TestStore_CreateLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)

	loaded, err := s.Load(st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.ID, loaded.ID)
	assert.Empty(t, loaded.Messages)
}

func TestStore_LoadMissingReturnsErrNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Load("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AppendMessagePersists(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(st.ID, message.NewUser("hello")))
	require.NoError(t, s.AppendMessage(st.ID, message.NewAssistant("hi", nil)))

	loaded, err := s.Load(st.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "hello", loaded.Messages[0].Content)
}

func TestStore_ExistsAndDelete(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)
	assert.True(t, s.Exists(st.ID))

	require.NoError(t, s.Delete(st.ID))
	assert.False(t, s.Exists(st.ID))
}

func TestStore_ListSortedByUpdatedAtDescending(t *testing.T) {
	s := New(t.TempDir())
	a, err := s.Create(time.Now())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := s.Create(time.Now())
	require.NoError(t, err)

	listing, err := s.List()
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.Equal(t, b.ID, listing[0].ID)
	assert.Equal(t, a.ID, listing[1].ID)
}

func TestStore_ListPreviewTruncates(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)

	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	require.NoError(t, s.AppendMessage(st.ID, message.NewUser(long)))

	listing, err := s.List()
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Len(t, listing[0].Preview, 80)
	assert.True(t, len(listing[0].Preview) == 80)
	assert.Equal(t, "...", listing[0].Preview[77:])
}

func TestStore_CompactArchivesAndReplacesMessages(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(st.ID, message.NewUser("do thing")))
	require.NoError(t, s.AppendMessage(st.ID, message.NewAssistant("done", nil)))

	entry := CompactEntry{
		Summary:       "did the thing",
		FilesModified: []string{"main.go"},
		PendingTasks:  []string{"write tests"},
	}
	require.NoError(t, s.Compact(st.ID, entry))

	loaded, err := s.Load(st.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, message.RoleSystem, loaded.Messages[0].Role)
	assert.Contains(t, loaded.Messages[0].Content, "did the thing")
	assert.Contains(t, loaded.Messages[0].Content, "main.go")

	require.Len(t, loaded.Metadata.Archives, 1)
	assert.Equal(t, 2, loaded.Metadata.Archives[0].MessageCount)

	archives, err := s.Archives(st.ID)
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestStore_PlanSaveLoadHas(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)

	assert.False(t, s.HasPlan(st.ID))
	require.NoError(t, s.SavePlan(st.ID, "# Plan\n\ndo stuff"))
	assert.True(t, s.HasPlan(st.ID))

	content, err := s.LoadPlan(st.ID)
	require.NoError(t, err)
	assert.Contains(t, content, "do stuff")
}

func TestStore_LoadPlanMissingReturnsErrNotFound(t *testing.T) {
	s := New(t.TempDir())
	st, err := s.Create(time.Now())
	require.NoError(t, err)
	_, err = s.LoadPlan(st.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
