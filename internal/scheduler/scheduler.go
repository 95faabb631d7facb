// Package scheduler turns model-issued tool requests into a
// confirm/execute/report lifecycle with trust memoization. Its job is to
// always produce a result, never to abort the turn.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"drover/internal/logging"
	"drover/internal/tools"
	"drover/internal/trust"
)

// Status tracks a tool call through its lifecycle. Transitions only move
// forward; Confirming is skipped when no confirmation is required.
type Status int

const (
	StatusPending Status = iota
	StatusConfirming
	StatusInvoked
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirming:
		return "confirming"
	case StatusInvoked:
		return "invoked"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// CancelledMessage is the benign result content for a user denial. It is a
// normal negative tool outcome, never a system fault.
const CancelledMessage = "Tool execution was cancelled by the user."

// ToolCall is one request from the model to invoke a named tool. Mutated
// only by the scheduler; immutable once Success or Error.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any

	mu           sync.Mutex
	status       Status
	confirmation *Confirmation
	result       *tools.ToolResult
}

// Status returns the call's current lifecycle state.
func (c *ToolCall) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Confirmation returns the pending confirmation, non-nil only while the
// call is Confirming.
func (c *ToolCall) Confirmation() *Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmation
}

// Result returns the final result, populated on Success or Error.
func (c *ToolCall) Result() *tools.ToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *ToolCall) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	if s != StatusConfirming {
		c.confirmation = nil
	}
	c.mu.Unlock()
}

func (c *ToolCall) finish(s Status, result *tools.ToolResult) *tools.ToolResult {
	c.mu.Lock()
	c.status = s
	c.confirmation = nil
	c.result = result
	c.mu.Unlock()
	return result
}

// Confirmation is the one-shot resolution channel attached to a Confirming
// call. The UI layer holds the send end via Resolve.
type Confirmation struct {
	Details *tools.ConfirmationDetails

	once    sync.Once
	outcome chan tools.ConfirmationOutcome
}

func newConfirmation(details *tools.ConfirmationDetails) *Confirmation {
	return &Confirmation{
		Details: details,
		outcome: make(chan tools.ConfirmationOutcome, 1),
	}
}

// Resolve supplies the user's outcome. Only the first call has any effect.
func (c *Confirmation) Resolve(outcome tools.ConfirmationOutcome) {
	c.once.Do(func() {
		c.outcome <- outcome
	})
}

// Notifier receives lifecycle callbacks for display. Callbacks are invoked
// synchronously from Schedule, after the corresponding transition.
type Notifier interface {
	// ToolCallStarted fires once per scheduled call, before any
	// confirmation. It is not fired for unknown tool names.
	ToolCallStarted(call *ToolCall, description string)

	// ToolCallConfirming fires when the call suspends awaiting an outcome.
	ToolCallConfirming(call *ToolCall)

	// ToolCallFinished fires when the call reaches Success or Error.
	ToolCallFinished(call *ToolCall)
}

// NopNotifier discards all callbacks.
type NopNotifier struct{}

func (NopNotifier) ToolCallStarted(*ToolCall, string) {}
func (NopNotifier) ToolCallConfirming(*ToolCall)      {}
func (NopNotifier) ToolCallFinished(*ToolCall)        {}

// Scheduler resolves tool calls against the registry, applies the
// confirmation/trust policy, and executes.
type Scheduler struct {
	registry    *tools.Registry
	trust       *trust.Store
	notifier    Notifier
	autoApprove bool

	mu      sync.Mutex
	pending map[string]*ToolCall // calls suspended in Confirming, by ID
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotifier sets the display notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithAutoApprove approves every confirmation without prompting.
func WithAutoApprove(auto bool) Option {
	return func(s *Scheduler) { s.autoApprove = auto }
}

// New creates a Scheduler. trustStore may be nil, in which case no trust is
// ever recorded or consulted.
func New(registry *tools.Registry, trustStore *trust.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: registry,
		trust:    trustStore,
		notifier: NopNotifier{},
		pending:  make(map[string]*ToolCall),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve supplies the outcome for a call suspended in Confirming. It
// reports whether a matching pending call existed.
func (s *Scheduler) Resolve(callID string, outcome tools.ConfirmationOutcome) bool {
	s.mu.Lock()
	call := s.pending[callID]
	s.mu.Unlock()

	if call == nil {
		return false
	}
	conf := call.Confirmation()
	if conf == nil {
		return false
	}
	conf.Resolve(outcome)
	return true
}

// Schedule drives one tool call to completion and always returns a result.
// Execution failures are captured in the result, not raised; exactly one
// Schedule call may be in flight per ToolCall.
func (s *Scheduler) Schedule(ctx context.Context, call *ToolCall) *tools.ToolResult {
	tool := s.registry.Get(call.Name)
	if tool == nil {
		// Protocol-level rejection: no start notification.
		logging.SchedulerWarn("unknown tool requested: %s", call.Name)
		return call.finish(StatusError, &tools.ToolResult{
			ToolName: call.Name,
			Error:    fmt.Errorf("%w: %s", tools.ErrToolNotFound, call.Name),
		})
	}

	s.notifier.ToolCallStarted(call, tool.GetDescription(call.Args))

	if details := tool.ShouldConfirmExecute(call.Args); details != nil {
		proceed, result := s.resolveConfirmation(ctx, call, tool, details)
		if !proceed {
			s.notifier.ToolCallFinished(call)
			return result
		}
	}

	call.setStatus(StatusInvoked)
	logging.Scheduler("invoking %s (id=%s)", call.Name, call.ID)

	result, err := s.registry.ExecuteTool(ctx, tool, s.argsWithCallID(call))
	if result == nil {
		result = &tools.ToolResult{ToolName: call.Name, Error: err}
	}

	if err != nil {
		call.finish(StatusError, result)
	} else {
		call.finish(StatusSuccess, result)
	}
	s.notifier.ToolCallFinished(call)
	return result
}

// resolveConfirmation applies trust, suspends for the user when needed, and
// records trust upgrades before execution proceeds. It returns proceed=false
// with a terminal result on denial or cancellation.
func (s *Scheduler) resolveConfirmation(ctx context.Context, call *ToolCall, tool *tools.Tool, details *tools.ConfirmationDetails) (bool, *tools.ToolResult) {
	if s.autoApprove {
		logging.SchedulerDebug("auto-approve: %s (id=%s)", call.Name, call.ID)
		return true, nil
	}

	if level := s.trustLevel(tool); level >= trust.LevelTool {
		logging.SchedulerDebug("trusted (%s): %s (id=%s)", level, call.Name, call.ID)
		return true, nil
	}

	conf := newConfirmation(details)
	call.mu.Lock()
	call.status = StatusConfirming
	call.confirmation = conf
	call.mu.Unlock()

	s.mu.Lock()
	s.pending[call.ID] = call
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, call.ID)
		s.mu.Unlock()
	}()

	s.notifier.ToolCallConfirming(call)
	logging.Scheduler("awaiting confirmation: %s (id=%s)", call.Name, call.ID)

	var outcome tools.ConfirmationOutcome
	select {
	case outcome = <-conf.outcome:
	case <-ctx.Done():
		logging.Scheduler("confirmation wait cancelled: %s (id=%s)", call.Name, call.ID)
		return false, call.finish(StatusError, &tools.ToolResult{
			ToolName: call.Name,
			Content:  CancelledMessage,
			Error:    errors.New(CancelledMessage),
		})
	}

	if !outcome.Approved() {
		logging.Scheduler("denied by user: %s (id=%s)", call.Name, call.ID)
		return false, call.finish(StatusError, &tools.ToolResult{
			ToolName: call.Name,
			Content:  CancelledMessage,
			Error:    errors.New(CancelledMessage),
		})
	}

	// Trust upgrades are written before execution proceeds.
	s.recordTrust(tool, outcome)
	return true, nil
}

func (s *Scheduler) trustLevel(tool *tools.Tool) trust.Level {
	if s.trust == nil {
		return trust.LevelNone
	}
	level, err := s.trust.Get(tool.Name, tool.Server)
	if err != nil {
		logging.SchedulerWarn("trust lookup failed for %s: %v", tool.Name, err)
		return trust.LevelNone
	}
	return level
}

func (s *Scheduler) recordTrust(tool *tools.Tool, outcome tools.ConfirmationOutcome) {
	if s.trust == nil {
		return
	}
	switch outcome {
	case tools.OutcomeApproveTool:
		if err := s.trust.TrustTool(tool.Name); err != nil {
			logging.SchedulerWarn("failed to record tool trust: %v", err)
		}
	case tools.OutcomeApproveServer:
		if tool.Server == "" {
			// Builtins have no origin server; the grant narrows to the tool.
			if err := s.trust.TrustTool(tool.Name); err != nil {
				logging.SchedulerWarn("failed to record tool trust: %v", err)
			}
			return
		}
		if err := s.trust.TrustServer(tool.Server); err != nil {
			logging.SchedulerWarn("failed to record server trust: %v", err)
		}
	}
}

// argsWithCallID passes the call ID through to tools that stream output.
func (s *Scheduler) argsWithCallID(call *ToolCall) map[string]any {
	args := make(map[string]any, len(call.Args)+1)
	for k, v := range call.Args {
		args[k] = v
	}
	args["call_id"] = call.ID
	return args
}
