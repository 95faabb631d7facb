// Package tools defines the local capabilities the model may invoke and the
// registry the scheduler resolves them through. Each tool is standalone;
// subpackages register their tools against a Registry at startup.
package tools

import (
	"context"
)

// ToolCategory classifies tools for listing and filtering.
type ToolCategory string

const (
	// CategoryFile covers workspace file operations.
	CategoryFile ToolCategory = "/file"

	// CategorySearch covers glob and content search.
	CategorySearch ToolCategory = "/search"

	// CategoryShell covers command execution.
	CategoryShell ToolCategory = "/shell"

	// CategoryResearch covers web retrieval.
	CategoryResearch ToolCategory = "/research"

	// CategoryGeneral is for tools usable in any context.
	CategoryGeneral ToolCategory = "/general"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
// This enables model tool calling with proper validation.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// Output is what a tool produces: Content feeds back into the model's
// history; Display is an optional richer payload for the user, falling back
// to Content when empty.
type Output struct {
	Content string
	Display string
}

// ExecuteFunc is the signature for tool execution.
type ExecuteFunc func(ctx context.Context, args map[string]any) (Output, error)

// ConfirmationOutcome is the user's answer to a confirmation prompt.
type ConfirmationOutcome int

const (
	// OutcomeDeny declines the call.
	OutcomeDeny ConfirmationOutcome = iota

	// OutcomeApproveOnce approves this call only.
	OutcomeApproveOnce

	// OutcomeApproveTool approves and trusts the tool for the session.
	OutcomeApproveTool

	// OutcomeApproveServer approves and trusts the tool's origin server.
	OutcomeApproveServer
)

func (o ConfirmationOutcome) String() string {
	switch o {
	case OutcomeDeny:
		return "deny"
	case OutcomeApproveOnce:
		return "approve_once"
	case OutcomeApproveTool:
		return "approve_tool"
	case OutcomeApproveServer:
		return "approve_server"
	default:
		return "unknown"
	}
}

// Approved reports whether the outcome permits execution.
func (o ConfirmationOutcome) Approved() bool {
	return o != OutcomeDeny
}

// ConfirmationDetails describes a pending call to the human operator.
type ConfirmationDetails struct {
	// Title is a short header, e.g. "Run shell command".
	Title string

	// Description explains what will happen, in user terms.
	Description string

	// Command is set when the call executes a shell command verbatim.
	Command string
}

// Tool defines a local capability the model can invoke. Tools are
// registered in the Registry and resolved by name by the scheduler.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	Description string

	// Category classifies the tool for listing.
	Category ToolCategory

	// Server identifies the external origin of the tool; empty for
	// builtins. Trust decisions can be keyed by it.
	Server string

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// ValidateArgs performs tool-specific argument validation beyond the
	// schema's required-key check. Optional.
	ValidateArgs func(args map[string]any) error

	// Describe renders a call-specific description, e.g. the command a
	// shell call would run. Optional; falls back to Description.
	Describe func(args map[string]any) string

	// Confirm reports whether this specific call needs user confirmation,
	// returning the prompt details, or nil when none is required.
	// Optional; nil means the tool never confirms.
	Confirm func(args map[string]any) *ConfirmationDetails

	// Priority orders tools within a category listing (default 50).
	Priority int
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ShouldConfirmExecute reports the confirmation prompt this call requires,
// or nil when it can run unattended.
func (t *Tool) ShouldConfirmExecute(args map[string]any) *ConfirmationDetails {
	if t.Confirm == nil {
		return nil
	}
	return t.Confirm(args)
}

// GetDescription renders the call-specific description.
func (t *Tool) GetDescription(args map[string]any) string {
	if t.Describe != nil {
		return t.Describe(args)
	}
	return t.Description
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Content is the output fed back to the model.
	Content string

	// Display is the payload shown to the user.
	Display string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
