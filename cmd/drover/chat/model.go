// Package chat provides the interactive TUI for drover.
package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"drover/cmd/drover/ui"
	"drover/internal/config"
	"drover/internal/logging"
	"drover/internal/model"
	"drover/internal/model/gemini"
	"drover/internal/scheduler"
	"drover/internal/tools"
	toolscore "drover/internal/tools/core"
	toolsresearch "drover/internal/tools/research"
	toolsshell "drover/internal/tools/shell"
	"drover/internal/trust"
	"drover/internal/turn"
)

// Config holds the settings for launching the chat interface.
type Config struct {
	Workspace string
	APIKey    string
}

// Messages exchanged with background goroutines.
type (
	refreshMsg     struct{}
	confirmMsg     struct{ call *scheduler.ToolCall }
	turnDoneMsg    struct{ err error }
	shellOutputMsg struct {
		callID string
		text   string
	}
)

// programRef lets background components send into the bubbletea loop once
// the program exists.
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) set(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}

func (r *programRef) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// chatNotifier forwards scheduler lifecycle events into the UI loop.
type chatNotifier struct {
	ref *programRef
}

func (n chatNotifier) ToolCallStarted(call *scheduler.ToolCall, description string) {
	n.ref.send(refreshMsg{})
}

func (n chatNotifier) ToolCallConfirming(call *scheduler.ToolCall) {
	n.ref.send(confirmMsg{call: call})
}

func (n chatNotifier) ToolCallFinished(call *scheduler.ToolCall) {
	n.ref.send(refreshMsg{})
}

// Model is the bubbletea model for the chat session.
type Model struct {
	styles   ui.Styles
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	items   *itemList
	history *model.History

	processor *turn.Processor
	sched     *scheduler.Scheduler

	workspace string
	modelName string

	running    bool
	cancelTurn context.CancelFunc

	// confirming is the call currently awaiting the user, nil when none.
	confirming *scheduler.ToolCall

	// liveOutput holds streaming shell output keyed by call ID.
	liveOutput map[string]string

	width, height int
	ready         bool
	lastErr       error
}

// Run assembles the runtime and blocks until the chat session ends.
func Run(cfg Config) error {
	ws := cfg.Workspace
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve workspace: %w", err)
		}
	}

	appCfg, err := config.LoadWorkspace(ws)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.APIKey != "" {
		appCfg.Model.APIKey = cfg.APIKey
	}

	if err := logging.Initialize(ws); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.CloseAll()
	logging.Boot("chat session starting (workspace=%s, model=%s)", ws, appCfg.Model.Model)

	trustPath := appCfg.Trust.DatabasePath
	if !filepath.IsAbs(trustPath) {
		trustPath = filepath.Join(ws, trustPath)
	}
	trustStore, err := trust.NewStore(trustPath)
	if err != nil {
		return fmt.Errorf("failed to open trust store: %w", err)
	}
	defer trustStore.Close()

	ref := &programRef{}

	registry := tools.NewRegistry()
	if err := toolscore.RegisterAll(registry); err != nil {
		return fmt.Errorf("failed to register core tools: %w", err)
	}
	shellSink := func(callID, text string) {
		ref.send(shellOutputMsg{callID: callID, text: text})
	}
	runner, err := toolsshell.RegisterAll(registry, appCfg, shellSink)
	if err != nil {
		return fmt.Errorf("failed to register shell tools: %w", err)
	}
	if err := toolsresearch.RegisterAll(registry); err != nil {
		return fmt.Errorf("failed to register research tools: %w", err)
	}

	// Edits to .drover/config.yaml take effect without restarting the chat.
	watcher, err := config.NewWatcher(ws, func(fresh *config.Config) {
		runner.ReplaceConfig(fresh)
	})
	if err == nil {
		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		if err := watcher.Start(watchCtx); err == nil {
			defer watcher.Stop()
		}
	} else {
		logging.ConfigDebug("config watcher unavailable: %v", err)
	}

	service, err := gemini.New(context.Background(), appCfg.Model.APIKey, appCfg.Model.Model, registry)
	if err != nil {
		return fmt.Errorf("failed to create model service: %w", err)
	}

	sched := scheduler.New(registry, trustStore,
		scheduler.WithAutoApprove(appCfg.Trust.AutoApprove),
		scheduler.WithNotifier(chatNotifier{ref: ref}),
	)

	history := &model.History{}
	items := newItemList(func() { ref.send(refreshMsg{}) })
	processor := turn.NewProcessor(service, sched, registry, items, history)
	processor.MaxToolPasses = appCfg.Turn.MaxToolPasses

	m := newModel(appCfg, ws, items, history, processor, sched)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	ref.set(p)

	_, err = p.Run()
	return err
}

func newModel(appCfg *config.Config, workspace string, items *itemList, history *model.History, processor *turn.Processor, sched *scheduler.Scheduler) Model {
	styles := ui.NewStyles(ui.DetectTheme())

	ta := textarea.New()
	ta.Placeholder = "Ask drover anything. Enter sends, Ctrl+C quits."
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		styles:     styles,
		textarea:   ta,
		spinner:    sp,
		items:      items,
		history:    history,
		processor:  processor,
		sched:      sched,
		workspace:  workspace,
		modelName:  appCfg.Model.Model,
		liveOutput: make(map[string]string),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}
