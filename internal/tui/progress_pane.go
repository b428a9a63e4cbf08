package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuetschek/en-deep/internal/events"
	"github.com/tuetschek/en-deep/internal/task"
)

// ProgressPaneModel shows plan status counts and a progress bar.
type ProgressPaneModel struct {
	total      int
	waiting    int
	pending    int
	inProgress int
	done       int
	failed     int
	width      int
	height     int
	focused    bool
}

// NewProgressPaneModel creates a new progress pane model.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.PlanProgressEvent:
		m.total = msg.Total
		m.waiting = msg.Waiting
		m.pending = msg.Pending
		m.inProgress = msg.InProgress
		m.done = msg.Done
		m.failed = msg.Failed

	case planUpdatedMsg:
		m.total = len(msg.tasks)
		m.waiting, m.pending, m.inProgress, m.done, m.failed = 0, 0, 0, 0, 0
		for _, t := range msg.tasks {
			switch t.Status {
			case task.StatusWaiting:
				m.waiting++
			case task.StatusPending:
				m.pending++
			case task.StatusInProgress:
				m.inProgress++
			case task.StatusDone:
				m.done++
			case task.StatusFailed:
				m.failed++
			}
		}
	}

	return m, nil
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Plan Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Total:       %d\n", m.total))
	b.WriteString(fmt.Sprintf("Done:        %s\n", StyleStatusDone.Render(fmt.Sprintf("%d", m.done))))
	b.WriteString(fmt.Sprintf("In progress: %s\n", StyleStatusInProgress.Render(fmt.Sprintf("%d", m.inProgress))))
	b.WriteString(fmt.Sprintf("Failed:      %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
	b.WriteString(fmt.Sprintf("Pending:     %s\n", StyleStatusPending.Render(fmt.Sprintf("%d", m.pending))))
	b.WriteString(fmt.Sprintf("Waiting:     %s\n", StyleStatusWaiting.Render(fmt.Sprintf("%d", m.waiting))))

	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-4, 40)
		doneWidth := (m.done * barWidth) / m.total
		failedWidth := (m.failed * barWidth) / m.total
		runningWidth := (m.inProgress * barWidth) / m.total
		restWidth := barWidth - doneWidth - failedWidth - runningWidth

		bar := StyleStatusDone.Render(strings.Repeat("=", max(0, doneWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StyleStatusInProgress.Render(strings.Repeat("-", max(0, runningWidth)))
		bar += StyleStatusWaiting.Render(strings.Repeat(".", max(0, restWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, m.done, m.total))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}
	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
