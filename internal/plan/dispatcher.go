package plan

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tuetschek/en-deep/internal/task"
)

// ErrWorkInProgress signals scheduling contention: no task is pending
// right now, but tasks are still running and others wait on them.
// Callers back off and retry; this is never a failure and must not be
// confused with the terminal "no task left" condition.
var ErrWorkInProgress = errors.New("no task ready, work still in progress")

// Builder produces the initial ordered plan from the scenario. It runs
// at most once per plan file, under the store lock, in whichever
// process first observes the empty file.
type Builder func() ([]*task.Description, error)

// Claim pairs a dispatched task with a copy of its plan entry, so
// callers can report on the algorithm and rank without another locked
// read.
type Claim struct {
	Desc *task.Description
	Task task.Task
}

// Dispatcher is the single mutation path into the plan: it hands out
// runnable tasks and records status changes, each as one locked
// read-modify-write transaction.
type Dispatcher struct {
	store    *Store
	registry *task.Registry
	build    Builder
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher. The builder may be nil when plan
// creation is handled elsewhere (e.g. status-only tooling); dispatching
// against an empty plan file then fails.
func NewDispatcher(store *Store, registry *task.Registry, build Builder, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: store, registry: registry, build: build, log: log}
}

// NextPending returns up to max runnable tasks, marking each
// in-progress before the lock is released so no two workers anywhere
// can be handed the same task.
//
// Outcomes:
//   - one or more tasks: run them, then report each via UpdateStatus;
//   - ErrWorkInProgress: back off and call again;
//   - nil, nil: the plan is drained (all done, or failures block the rest).
func (d *Dispatcher) NextPending(max int) ([]Claim, error) {
	if max < 1 {
		max = 1
	}

	var picked []Claim
	err := d.store.WithLock(func() error {
		tasks, err := d.store.Read()
		if err != nil {
			return err
		}

		// First locker on an empty file builds the plan; everyone else
		// reads the persisted result. A build failure leaves the file
		// empty and is deterministic across processes.
		if len(tasks) == 0 {
			if d.build == nil {
				return fmt.Errorf("%w: no plan in %s and no builder configured",
					ErrStoreUnavailable, d.store.Path())
			}
			d.log.Info("plan file empty, building plan", "path", d.store.Path())
			tasks, err = d.build()
			if err != nil {
				return fmt.Errorf("building plan: %w", err)
			}
			if err := d.store.Write(tasks); err != nil {
				return err
			}
			d.log.Info("plan created", "tasks", len(tasks))
		}

		promote(tasks)

		var inProgress, waiting bool
		var chosen []*task.Description
		for _, t := range tasks {
			switch t.Status {
			case task.StatusInProgress:
				inProgress = true
			case task.StatusWaiting:
				waiting = true
			case task.StatusPending:
				if len(chosen) < max {
					chosen = append(chosen, t)
				}
			}
		}

		if len(chosen) == 0 {
			if inProgress && waiting {
				return ErrWorkInProgress
			}
			return nil
		}

		// Resolve before mutating so an unknown algorithm leaves the
		// plan untouched.
		for _, t := range chosen {
			runnable, err := d.registry.Resolve(t)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			picked = append(picked, Claim{Desc: t.Clone(), Task: runnable})
		}
		for _, t := range chosen {
			t.Status = task.StatusInProgress
		}
		return d.store.Write(tasks)
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

// UpdateStatus is the mirror operation to NextPending: under the same
// lock, find the task by name, apply the status change, persist the
// whole document. Regressions along the status order are rejected.
func (d *Dispatcher) UpdateStatus(name string, status task.Status) error {
	return d.store.WithLock(func() error {
		tasks, err := d.store.Read()
		if err != nil {
			return err
		}

		var target *task.Description
		for _, t := range tasks {
			if t.Name == name {
				target = t
				break
			}
		}
		if target == nil {
			return fmt.Errorf("%w: %s", task.ErrNotFound, name)
		}
		if !target.Status.CanTransition(status) {
			return fmt.Errorf("%w: task %s: %s -> %s",
				task.ErrInvalidTransition, name, target.Status, status)
		}

		target.Status = status
		promote(tasks)
		return d.store.Write(tasks)
	})
}

// Reset forces every task whose name starts with one of the prefixes,
// plus all its transitive dependents, back to a restartable status.
// This is the only sanctioned way out of a terminal state. A missing
// plan is a no-op.
func (d *Dispatcher) Reset(prefixes []string) error {
	if len(prefixes) == 0 {
		return nil
	}
	return d.store.WithLock(func() error {
		tasks, err := d.store.Read()
		if err != nil || len(tasks) == 0 {
			return err
		}

		dependents := make(map[string][]*task.Description)
		for _, t := range tasks {
			for _, dep := range t.DependsOn {
				dependents[dep] = append(dependents[dep], t)
			}
		}

		reset := make(map[string]bool)
		var queue []*task.Description
		for _, t := range tasks {
			for _, prefix := range prefixes {
				if strings.HasPrefix(t.Name, prefix) {
					queue = append(queue, t)
					break
				}
			}
		}
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			if reset[t.Name] {
				continue
			}
			reset[t.Name] = true
			queue = append(queue, dependents[t.Name]...)
		}

		if len(reset) == 0 {
			return nil
		}
		for _, t := range tasks {
			if reset[t.Name] {
				t.Status = task.StatusWaiting
			}
		}
		promote(tasks)
		d.log.Info("reset tasks to restartable status", "count", len(reset))
		return d.store.Write(tasks)
	})
}

// promote re-derives readiness: a waiting task becomes pending the
// instant every dependency is done. Run on every scan so the persisted
// raw statuses never have to be trusted for readiness.
func promote(tasks []*task.Description) {
	done := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Status == task.StatusDone {
			done[t.Name] = true
		}
	}
	for _, t := range tasks {
		if t.Status != task.StatusWaiting {
			continue
		}
		ready := true
		for _, dep := range t.DependsOn {
			if !done[dep] {
				ready = false
				break
			}
		}
		if ready {
			t.Status = task.StatusPending
		}
	}
}

// HasFailed takes the lock and reports whether any task ended failed.
// Used for the process exit condition.
func (d *Dispatcher) HasFailed() (bool, error) {
	var failed bool
	err := d.store.WithLock(func() error {
		tasks, err := d.store.Read()
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.Status == task.StatusFailed {
				failed = true
				break
			}
		}
		return nil
	})
	return failed, err
}
