package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"drover/internal/scheduler"
	"drover/internal/turn"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.Header.Width(m.width).Render(
		fmt.Sprintf(" drover — %s ", m.modelName))

	body := m.viewport.View()
	if m.confirming != nil {
		body = m.renderConfirmOverlay()
	}

	var status string
	switch {
	case m.confirming != nil:
		status = m.styles.Warning.Render("awaiting confirmation")
	case m.running:
		status = m.spinner.View() + m.styles.Muted.Render(" thinking… (Ctrl+X to cancel)")
	case m.lastErr != nil:
		status = m.styles.Error.Render("error: " + m.lastErr.Error())
	default:
		status = m.styles.Muted.Render(m.workspace)
	}
	footer := m.styles.Footer.Width(m.width).Render(status)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.textarea.View(),
		footer,
	)
}

// renderTranscript formats the item list for the viewport.
func (m Model) renderTranscript() string {
	var sb strings.Builder

	for _, item := range m.items.snapshot() {
		switch data := item.data.(type) {
		case userItem:
			sb.WriteString("\n")
			sb.WriteString(m.styles.Prompt.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(data.Text))
			sb.WriteString("\n")

		case turn.MessageItem:
			if data.Text == "" {
				continue
			}
			sb.WriteString("\n")
			sb.WriteString(m.styles.Title.Render("drover") + "\n")
			sb.WriteString(m.safeRenderMarkdown(data.Text))
			sb.WriteString("\n")

		case turn.ToolGroupItem:
			sb.WriteString(m.renderToolGroup(data))
		}
	}

	return sb.String()
}

func (m Model) renderToolGroup(group turn.ToolGroupItem) string {
	var sb strings.Builder
	for _, entry := range group.Entries {
		glyph := m.statusGlyph(entry.Status)
		line := fmt.Sprintf("%s %s", glyph, entry.Description)
		sb.WriteString(m.styles.ToolEntry.Render(line) + "\n")

		if entry.Status == scheduler.StatusInvoked {
			if live := m.liveOutput[entry.CallID]; live != "" {
				sb.WriteString(m.styles.Muted.Render(tailLines(live, 8)) + "\n")
			}
		} else if entry.Result != "" {
			sb.WriteString(m.styles.Muted.Render(tailLines(entry.Result, 8)) + "\n")
		}
	}
	return m.styles.ToolGroup.Render(sb.String()) + "\n"
}

func (m Model) statusGlyph(status scheduler.Status) string {
	switch status {
	case scheduler.StatusSuccess:
		return m.styles.Success.Render("✓")
	case scheduler.StatusError:
		return m.styles.Error.Render("✗")
	case scheduler.StatusConfirming:
		return m.styles.Warning.Render("?")
	case scheduler.StatusInvoked:
		return m.styles.Spinner.Render("●")
	default:
		return m.styles.Muted.Render("·")
	}
}

// renderConfirmOverlay shows the pending confirmation in place of the
// transcript.
func (m Model) renderConfirmOverlay() string {
	call := m.confirming
	details := call.Confirmation().Details

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(details.Title) + "\n\n")
	if details.Description != "" {
		sb.WriteString(m.styles.Body.Render(details.Description) + "\n")
	}
	if details.Command != "" {
		sb.WriteString(m.styles.Body.Render("  $ "+details.Command) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("[1] allow once   [2] always allow this tool"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("[3] always allow this server   [n] deny"))

	overlay := m.styles.Overlay.Render(sb.String())
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, overlay)
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

// tailLines keeps the last n lines of text, for live output previews.
func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return "…\n" + strings.Join(lines[len(lines)-n:], "\n")
}
