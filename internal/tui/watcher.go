package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/task"
)

// planUpdatedMsg carries a fresh plan snapshot into the panes.
type planUpdatedMsg struct {
	tasks []*task.Description
}

// watchErrMsg reports a watcher failure; the view shows it and keeps
// running on whatever snapshot it last had.
type watchErrMsg struct {
	err error
}

// planWatcher follows the plan file on disk. The plan is replaced by
// rename on every update, so it watches the containing directory and
// filters for the plan's own name.
type planWatcher struct {
	store   *plan.Store
	watcher *fsnotify.Watcher
}

func newPlanWatcher(store *plan.Store) (*planWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(store.Path())); err != nil {
		w.Close()
		return nil, err
	}
	return &planWatcher{store: store, watcher: w}, nil
}

// load reads the current snapshot immediately, for startup.
func (pw *planWatcher) load() tea.Cmd {
	return func() tea.Msg {
		tasks, err := pw.store.Snapshot()
		if err != nil {
			return watchErrMsg{err: err}
		}
		return planUpdatedMsg{tasks: tasks}
	}
}

// next blocks until the plan file changes, then delivers a snapshot.
func (pw *planWatcher) next() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-pw.watcher.Events:
				if !ok {
					return nil
				}
				if ev.Name != pw.store.Path() {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				tasks, err := pw.store.Snapshot()
				if err != nil {
					return watchErrMsg{err: err}
				}
				return planUpdatedMsg{tasks: tasks}
			case err, ok := <-pw.watcher.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{err: err}
			}
		}
	}
}

func (pw *planWatcher) close() error {
	return pw.watcher.Close()
}
