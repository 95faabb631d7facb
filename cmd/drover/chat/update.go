package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"drover/internal/logging"
	"drover/internal/tools"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.confirming != nil {
			return m.handleConfirmKey(msg)
		}
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancelTurn != nil {
				m.cancelTurn()
			}
			return m, tea.Quit

		case tea.KeyCtrlX:
			if m.running && m.cancelTurn != nil {
				m.cancelTurn()
				logging.Turn("cancel requested from chat")
			}
			return m, nil

		case tea.KeyEnter:
			if !m.running {
				return m.submitInput()
			}
			return m, nil
		}

	case refreshMsg:
		m.refreshViewport()

	case shellOutputMsg:
		m.liveOutput[msg.callID] = msg.text
		m.refreshViewport()

	case confirmMsg:
		m.confirming = msg.call
		return m, nil

	case turnDoneMsg:
		m.running = false
		m.cancelTurn = nil
		m.confirming = nil
		m.lastErr = msg.err
		m.liveOutput = make(map[string]string)
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.running {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, taCmd, vpCmd)

	return m, tea.Batch(cmds...)
}

// handleConfirmKey maps overlay keys to confirmation outcomes.
func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	call := m.confirming

	var outcome tools.ConfirmationOutcome
	switch msg.String() {
	case "1", "y", "enter":
		outcome = tools.OutcomeApproveOnce
	case "2", "t":
		outcome = tools.OutcomeApproveTool
	case "3", "a":
		outcome = tools.OutcomeApproveServer
	case "n", "esc":
		outcome = tools.OutcomeDeny
	case "ctrl+c":
		m.sched.Resolve(call.ID, tools.OutcomeDeny)
		return m, tea.Quit
	default:
		return m, nil
	}

	m.sched.Resolve(call.ID, outcome)
	m.confirming = nil
	m.refreshViewport()
	return m, nil
}

// submitInput starts a turn with the textarea contents.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()
	m.lastErr = nil

	m.items.AddItem(userItem{Text: input}, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel
	m.running = true

	processor := m.processor
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			err := processor.Run(ctx, input)
			cancel()
			return turnDoneMsg{err: err}
		},
	)
}

func (m Model) resize(width, height int) Model {
	m.width = width
	m.height = height

	headerHeight := 1
	footerHeight := 1
	inputHeight := m.textarea.Height() + 1
	vpHeight := height - headerHeight - footerHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(width - 2)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshViewport()
	return m
}

// refreshViewport re-renders the transcript and keeps the view pinned to
// the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
