package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/tuetschek/en-deep/internal/events"
)

const maxLogLines = 500

// LogPaneModel shows a scrollback of task lifecycle events. It only
// fills up when the watch view runs inside the same process as the
// workers; a standalone watch has nothing to subscribe to and keeps
// the pane empty.
type LogPaneModel struct {
	lines    []string
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewLogPaneModel creates an empty log pane.
func NewLogPaneModel() LogPaneModel {
	return LogPaneModel{viewport: viewport.New(0, 0)}
}

// Update handles messages for the log pane.
func (m LogPaneModel) Update(msg tea.Msg) (LogPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ:
			m.viewport.LineDown(1)
		case KeyK:
			m.viewport.LineUp(1)
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.TaskStartedEvent:
		m.append(fmt.Sprintf("%s  %s started (worker %d)",
			msg.Timestamp.Format("15:04:05"), msg.Name, msg.Worker))

	case events.TaskCompletedEvent:
		m.append(fmt.Sprintf("%s  %s %s in %s",
			msg.Timestamp.Format("15:04:05"), msg.Name,
			StyleStatusDone.Render("done"), msg.Duration.Round(10*time.Millisecond)))

	case events.TaskFailedEvent:
		m.append(fmt.Sprintf("%s  %s %s: %v",
			msg.Timestamp.Format("15:04:05"), msg.Name,
			StyleStatusFailed.Render("failed"), msg.Err))
	}

	return m, cmd
}

func (m *LogPaneModel) append(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View renders the log pane.
func (m LogPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := StyleTitle.Render("Events")
	content := title + "\n" + m.viewport.View()

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// SetSize updates the pane dimensions.
func (m *LogPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w - 4
	m.viewport.Height = h - 4
}

// SetFocused updates the focus state.
func (m *LogPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
