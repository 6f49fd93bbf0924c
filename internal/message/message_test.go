package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_ValidateRequiresSystemFirst(t *testing.T) {
	tr := New()
	tr.Append(NewUser("hi"))
	err := tr.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role=system")
}

func TestTranscript_ValidateToolCallBacklink(t *testing.T) {
	tr := NewWithSystem("you are a test")
	tr.Append(NewUser("do it"))
	tr.Append(NewAssistant("", []ToolCall{{ID: "call_1", Name: "bash", Arguments: `{"command":"echo x"}`}}))
	tr.Append(NewToolResult("call_1", "x\n"))
	require.NoError(t, tr.Validate())

	tr2 := NewWithSystem("sys")
	tr2.Append(NewToolResult("call_missing", "oops"))
	err := tr2.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_missing")
}

func TestTranscript_AppendOnlyOrderPreserved(t *testing.T) {
	tr := NewWithSystem("sys")
	tr.Append(NewUser("one"))
	tr.Append(NewUser("two"))
	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "two", msgs[2].Content)
}

func TestTranscript_SetMessagesReplaces(t *testing.T) {
	tr := NewWithSystem("sys")
	tr.Append(NewUser("one"))
	tr.SetMessages([]Message{NewSystem("new sys"), NewUser("reloaded")})
	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "new sys", msgs[0].Content)
}

func TestTranscript_ClearProducesFreshSystemOnly(t *testing.T) {
	tr := NewWithSystem("sys")
	tr.Append(NewUser("one"))
	tr.Clear("sys 2")
	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "sys 2", msgs[0].Content)
}

func TestTranscript_JSONRoundTrip(t *testing.T) {
	tr := NewWithSystem("sys")
	tr.Append(NewUser("hi"))
	tr.Append(NewAssistant("", []ToolCall{{ID: "c1", Name: "read", Arguments: `{"path":"a.go"}`}}))
	tr.Append(NewToolResult("c1", "contents"))

	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var restored Transcript
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, tr.Messages(), restored.Messages())
}

func TestLastUserContent(t *testing.T) {
	tr := NewWithSystem("sys")
	assert.Equal(t, "", tr.LastUserContent())
	tr.Append(NewUser("first"))
	tr.Append(NewAssistant("reply", nil))
	tr.Append(NewUser("second"))
	assert.Equal(t, "second", tr.LastUserContent())
}
