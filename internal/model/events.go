// Package model defines the normalized event stream the turn processor
// consumes, and the service interface a provider adapter implements.
// Vendor wire formats never cross this boundary.
package model

import "drover/internal/tools"

// StreamEvent is a closed sum of the events a model stream can produce.
// Adding a variant is a compile-time decision; consumers switch exhaustively.
type StreamEvent interface {
	isStreamEvent()
}

// ContentEvent carries an incremental text delta of the model's reply.
type ContentEvent struct {
	Text string
}

// ToolCallRequestEvent is the model asking to invoke a named local tool.
type ToolCallRequestEvent struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolCallResponseEvent reports a finished tool call back into the stream.
type ToolCallResponseEvent struct {
	ID      string
	Content string
	Err     error
}

// ToolCallConfirmationEvent surfaces a pending confirmation to the operator.
type ToolCallConfirmationEvent struct {
	ID      string
	Details *tools.ConfirmationDetails
}

func (ContentEvent) isStreamEvent()              {}
func (ToolCallRequestEvent) isStreamEvent()      {}
func (ToolCallResponseEvent) isStreamEvent()     {}
func (ToolCallConfirmationEvent) isStreamEvent() {}
