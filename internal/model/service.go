package model

import "context"

// Role identifies who produced a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of conversational history.
type Message struct {
	Role Role

	// Text holds user input or assistant narration.
	Text string

	// ToolName and ToolCallID are set on RoleTool entries, and on
	// RoleAssistant entries that requested a call.
	ToolName   string
	ToolCallID string

	// ToolArgs is set on assistant entries that requested a call.
	ToolArgs map[string]any

	// ToolResult is set on RoleTool entries.
	ToolResult string

	// ToolErr marks a RoleTool entry as a failed call.
	ToolErr bool
}

// History is the growing transcript a session feeds back to the model.
type History struct {
	messages []Message
}

// Append adds messages to the transcript.
func (h *History) Append(msgs ...Message) {
	h.messages = append(h.messages, msgs...)
}

// Messages returns the transcript in order. The slice is shared; callers
// must not mutate it.
func (h *History) Messages() []Message {
	return h.messages
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.messages)
}

// Service streams model output for one request. Implementations translate
// to and from their vendor's wire format and emit normalized StreamEvents.
// The event channel is closed when the stream ends; a stream-level failure
// is delivered on the error channel (at most one). Cancellation of ctx ends
// the stream without a failure.
type Service interface {
	// SendStream sends history plus the new input and returns the event
	// stream. The channel is closed when the model finishes.
	SendStream(ctx context.Context, history []Message, input Message) (<-chan StreamEvent, <-chan error, error)
}
