// Package turn drives one conversational turn: it streams model output,
// routes content to the display and tool requests to the scheduler, and
// loops until the model stops requesting tools.
package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"drover/internal/logging"
	"drover/internal/model"
	"drover/internal/scheduler"
	"drover/internal/tools"
)

// ErrEmptyInput is returned when a turn is started with no input.
var ErrEmptyInput = errors.New("input is empty")

// DisplaySink receives display items. Rendering is out of scope; the chat
// layer owns it.
type DisplaySink interface {
	// AddItem appends a display item and returns its handle.
	AddItem(data any, ts time.Time) int

	// UpdateItem replaces the item's data via fn.
	UpdateItem(id int, fn func(data any) any)
}

// MessageItem is an incrementally displayed model reply segment.
type MessageItem struct {
	Text     string
	Complete bool
}

// ToolGroupItem is the display container for the tool calls of one turn.
type ToolGroupItem struct {
	Entries []ToolEntry
}

// ToolEntry is one tool call's display state within a group.
type ToolEntry struct {
	CallID      string
	Name        string
	Description string
	Status      scheduler.Status
	Result      string
}

// Processor runs turns against a model service and a scheduler.
type Processor struct {
	service  model.Service
	sched    *scheduler.Scheduler
	sink     DisplaySink
	history  *model.History
	registry *tools.Registry

	// MaxToolPasses bounds model round-trips within one turn so a model
	// that keeps requesting tools cannot loop forever.
	MaxToolPasses int

	// SplitThreshold is the buffered-text size that triggers closing the
	// in-progress message at a safe markdown boundary.
	SplitThreshold int
}

// NewProcessor creates a Processor sharing the given history.
func NewProcessor(service model.Service, sched *scheduler.Scheduler, registry *tools.Registry, sink DisplaySink, history *model.History) *Processor {
	return &Processor{
		service:        service,
		sched:          sched,
		sink:           sink,
		history:        history,
		registry:       registry,
		MaxToolPasses:  24,
		SplitThreshold: defaultSplitThreshold,
	}
}

// Run drives one user turn to completion. Cancellation of ctx aborts the
// in-flight stream and is not reported as a failure.
func (p *Processor) Run(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	p.history.Append(model.Message{Role: model.RoleUser, Text: input})
	logging.Turn("turn started (%d history entries)", p.history.Len())

	for pass := 0; pass < p.MaxToolPasses; pass++ {
		toolsRan, err := p.streamOnePass(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			logging.Turn("turn cancelled")
			return nil
		}
		if !toolsRan {
			logging.Turn("turn complete after %d pass(es)", pass+1)
			return nil
		}
	}

	logging.TurnWarn("turn hit the tool-pass limit (%d)", p.MaxToolPasses)
	return nil
}

// streamOnePass sends the current history and consumes one model stream.
// It reports whether any tool calls executed, which requires another pass.
func (p *Processor) streamOnePass(ctx context.Context) (bool, error) {
	msgs := p.history.Messages()
	events, errc, err := p.service.SendStream(ctx, msgs[:len(msgs)-1], msgs[len(msgs)-1])
	if err != nil {
		return false, err
	}

	st := &passState{processor: p}

	for ev := range events {
		switch e := ev.(type) {
		case model.ContentEvent:
			st.appendContent(e.Text)

		case model.ToolCallRequestEvent:
			st.runToolCall(ctx, e)

		case model.ToolCallResponseEvent:
			st.updateEntry(e.ID, func(entry *ToolEntry) {
				entry.Result = e.Content
				if e.Err != nil {
					entry.Status = scheduler.StatusError
				} else {
					entry.Status = scheduler.StatusSuccess
				}
			})

		case model.ToolCallConfirmationEvent:
			st.updateEntry(e.ID, func(entry *ToolEntry) {
				entry.Status = scheduler.StatusConfirming
			})
		}
	}

	st.closeMessage()
	st.flushSpoken()

	// A cancelled stream ends without an error; a genuine stream failure
	// arrives on errc.
	select {
	case streamErr, ok := <-errc:
		if ok && streamErr != nil && ctx.Err() == nil {
			return false, streamErr
		}
	default:
	}

	return st.toolsRan, nil
}

// passState tracks the display state of one stream pass.
type passState struct {
	processor *Processor

	buf       strings.Builder
	spoken    strings.Builder // all content of the pass, for history
	messageID int
	msgOpen   bool

	groupID   int
	groupOpen bool
	entries   []ToolEntry

	toolsRan bool
}

func (st *passState) appendContent(text string) {
	st.buf.WriteString(text)
	st.spoken.WriteString(text)

	if !st.msgOpen {
		st.messageID = st.processor.sink.AddItem(MessageItem{}, time.Now())
		st.msgOpen = true
	}

	// Close out at a safe boundary once enough text accumulated, so long
	// replies render incrementally without re-rendering everything.
	if st.buf.Len() >= st.processor.SplitThreshold {
		if split := safeSplitPoint(st.buf.String()); split > 0 {
			full := st.buf.String()
			st.setMessage(full[:split], true)
			st.buf.Reset()
			st.buf.WriteString(full[split:])
			st.messageID = st.processor.sink.AddItem(MessageItem{}, time.Now())
		}
	}

	st.setMessage(st.buf.String(), false)
}

func (st *passState) setMessage(text string, complete bool) {
	st.processor.sink.UpdateItem(st.messageID, func(any) any {
		return MessageItem{Text: text, Complete: complete}
	})
}

// closeMessage finalizes the in-progress message, if any.
func (st *passState) closeMessage() {
	if !st.msgOpen {
		return
	}
	if st.buf.Len() > 0 {
		st.setMessage(st.buf.String(), true)
	} else {
		st.setMessage("", true)
	}
	st.msgOpen = false
	st.buf.Reset()
}

// flushSpoken persists the pass's accumulated reply text to history so the
// next request carries it as model context.
func (st *passState) flushSpoken() {
	if st.spoken.Len() == 0 {
		return
	}
	st.processor.history.Append(model.Message{Role: model.RoleAssistant, Text: st.spoken.String()})
	st.spoken.Reset()
}

// runToolCall delegates one request to the scheduler and feeds the result
// back into history. Receiving a request resets the content buffer: the
// model is acting now, not narrating.
func (st *passState) runToolCall(ctx context.Context, req model.ToolCallRequestEvent) {
	p := st.processor
	st.closeMessage()
	st.flushSpoken()

	if !st.groupOpen {
		st.groupID = p.sink.AddItem(ToolGroupItem{}, time.Now())
		st.groupOpen = true
	}

	st.entries = append(st.entries, ToolEntry{
		CallID:      req.ID,
		Name:        req.Name,
		Description: p.describeCall(req),
		Status:      scheduler.StatusPending,
	})
	st.syncGroup()

	call := &scheduler.ToolCall{ID: req.ID, Name: req.Name, Args: req.Args}
	result := p.sched.Schedule(ctx, call)
	st.toolsRan = true

	st.updateEntry(req.ID, func(entry *ToolEntry) {
		entry.Status = call.Status()
		if result.Error != nil {
			entry.Result = result.Error.Error()
			if result.Content != "" {
				entry.Result = result.Content
			}
		} else {
			entry.Result = result.Display
		}
	})

	// Results are appended to history so the next pass has full context.
	p.history.Append(
		model.Message{Role: model.RoleAssistant, ToolName: req.Name, ToolCallID: req.ID, ToolArgs: req.Args},
		model.Message{
			Role:       model.RoleTool,
			ToolName:   req.Name,
			ToolCallID: req.ID,
			ToolResult: resultContent(result),
			ToolErr:    result.Error != nil,
		},
	)
}

func resultContent(result *tools.ToolResult) string {
	if result.Error != nil && result.Content == "" {
		return result.Error.Error()
	}
	return result.Content
}

// describeCall resolves the call's display description. Unknown tools keep
// the raw name; the scheduler rejects them on its own.
func (p *Processor) describeCall(req model.ToolCallRequestEvent) string {
	if t := p.registry.Get(req.Name); t != nil {
		return t.GetDescription(req.Args)
	}
	return req.Name
}

func (st *passState) updateEntry(callID string, fn func(*ToolEntry)) {
	for i := range st.entries {
		if st.entries[i].CallID == callID {
			fn(&st.entries[i])
			break
		}
	}
	st.syncGroup()
}

func (st *passState) syncGroup() {
	if !st.groupOpen {
		return
	}
	entries := append([]ToolEntry{}, st.entries...)
	st.processor.sink.UpdateItem(st.groupID, func(any) any {
		return ToolGroupItem{Entries: entries}
	})
}
