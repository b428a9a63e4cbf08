package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/tuetschek/en-deep/internal/task"
)

// TaskPaneModel lists every plan entry in rank order with its current
// status.
type TaskPaneModel struct {
	tasks    []*task.Description
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewTaskPaneModel creates an empty task pane.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{viewport: viewport.New(0, 0)}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
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

	case planUpdatedMsg:
		m.tasks = msg.tasks
		sort.SliceStable(m.tasks, func(i, j int) bool {
			return m.tasks[i].Rank < m.tasks[j].Rank
		})
		m.viewport.SetContent(m.renderRows())
	}

	return m, cmd
}

// renderRows builds the task table body.
func (m TaskPaneModel) renderRows() string {
	if len(m.tasks) == 0 {
		return "No plan yet."
	}

	var b strings.Builder
	for _, t := range m.tasks {
		status := statusStyle(t.Status).Render(fmt.Sprintf("%-11s", t.Status))
		b.WriteString(fmt.Sprintf("%3d  %s  %-24s %s\n", t.Rank, status, t.Name, t.Algorithm))
	}
	return b.String()
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	title := StyleTitle.Render("Tasks")
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
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w - 4
	m.viewport.Height = h - 4
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
