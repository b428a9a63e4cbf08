// Package tui implements the watch view: a live three-pane display of
// the shared plan built with Bubble Tea. It can run standalone against
// the plan file of another process, or inside a run to also show the
// worker event stream.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuetschek/en-deep/internal/events"
	"github.com/tuetschek/en-deep/internal/plan"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneLog
	PaneProgress
)

// Model is the root Bubble Tea model for the watch view.
type Model struct {
	taskPane     TaskPaneModel
	logPane      LogPaneModel
	progressPane ProgressPaneModel
	focusedPane  PaneID

	watcher  *planWatcher
	eventSub <-chan events.Event

	width    int
	height   int
	quitting bool
	watchErr error
}

// New creates the watch model over a plan store. bus may be nil when
// watching another process's run from the outside.
func New(store *plan.Store, bus *events.Bus) (Model, error) {
	watcher, err := newPlanWatcher(store)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		taskPane:     NewTaskPaneModel(),
		logPane:      NewLogPaneModel(),
		progressPane: NewProgressPaneModel(),
		focusedPane:  PaneTasks,
		watcher:      watcher,
	}
	if bus != nil {
		m.eventSub = bus.SubscribeAll(256)
	}
	return m, nil
}

// Init loads the first snapshot and starts the watch loops.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.watcher.load(), m.watcher.next()}
	if m.eventSub != nil {
		cmds = append(cmds, waitForEvent(m.eventSub))
	}
	return tea.Batch(cmds...)
}

// waitForEvent returns a command that waits for the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			m.watcher.close()
			return m, tea.Quit

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 3
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 2) % 3
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneLog
			m.updateFocusStates()

		case KeyPane3:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			switch m.focusedPane {
			case PaneTasks:
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneLog:
				var cmd tea.Cmd
				m.logPane, cmd = m.logPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case planUpdatedMsg:
		m.watchErr = nil
		var cmd tea.Cmd
		m.taskPane, cmd = m.taskPane.Update(msg)
		cmds = append(cmds, cmd)
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, m.watcher.next())

	case watchErrMsg:
		m.watchErr = msg.err
		cmds = append(cmds, m.watcher.next())

	case events.TaskStartedEvent, events.TaskCompletedEvent, events.TaskFailedEvent:
		var cmd tea.Cmd
		m.logPane, cmd = m.logPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.PlanProgressEvent:
		var cmd tea.Cmd
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the watch view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading plan..."
	}

	left := m.taskPane.View()
	rightTop := m.logPane.View()
	rightBottom := m.progressPane.View()

	right := lipgloss.JoinVertical(lipgloss.Left, rightTop, rightBottom)
	main := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	statusBar := HelpView()
	if m.watchErr != nil {
		statusBar = StyleStatusFailed.Render(fmt.Sprintf("watch error: %v", m.watchErr))
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, statusBar)
}

// computeLayout calculates pane dimensions and updates all child
// models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 55) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1
	rightBottomHeight := 13
	if rightBottomHeight > availableHeight {
		rightBottomHeight = availableHeight
	}
	rightTopHeight := availableHeight - rightBottomHeight

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.logPane.SetSize(rightWidth, rightTopHeight)
	m.progressPane.SetSize(rightWidth, rightBottomHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.logPane.SetFocused(m.focusedPane == PaneLog)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
