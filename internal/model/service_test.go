package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendAndLen(t *testing.T) {
	h := &History{}
	assert.Equal(t, 0, h.Len())

	h.Append(Message{Role: RoleUser, Text: "hello"})
	h.Append(
		Message{Role: RoleAssistant, ToolName: "probe", ToolCallID: "c1"},
		Message{Role: RoleTool, ToolName: "probe", ToolCallID: "c1", ToolResult: "ok"},
	)

	require.Equal(t, 3, h.Len())
	msgs := h.Messages()
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
	assert.Equal(t, "ok", msgs[2].ToolResult)
}

func TestStreamEvent_Variants(t *testing.T) {
	// Each variant flows through the one channel type; a consumer switch
	// recovers the concrete payload.
	events := []StreamEvent{
		ContentEvent{Text: "delta"},
		ToolCallRequestEvent{ID: "c1", Name: "probe", Args: map[string]any{"k": "v"}},
		ToolCallResponseEvent{ID: "c1", Content: "done", Err: errors.New("boom")},
		ToolCallConfirmationEvent{ID: "c1"},
	}

	var kinds []string
	for _, ev := range events {
		switch e := ev.(type) {
		case ContentEvent:
			kinds = append(kinds, "content")
			assert.Equal(t, "delta", e.Text)
		case ToolCallRequestEvent:
			kinds = append(kinds, "request")
			assert.Equal(t, "probe", e.Name)
		case ToolCallResponseEvent:
			kinds = append(kinds, "response")
			assert.Error(t, e.Err)
		case ToolCallConfirmationEvent:
			kinds = append(kinds, "confirmation")
		}
	}
	assert.Equal(t, []string{"content", "request", "response", "confirmation"}, kinds)
}
