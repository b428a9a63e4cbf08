// Package task defines the unit of scheduled work: its description as it
// appears in the plan file, its status state machine, the generic Task
// interface executed by workers, and the registry that maps algorithm
// names to concrete implementations.
package task

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by task and plan operations.
var (
	ErrNotFound          = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownAlgorithm  = errors.New("unknown algorithm")
)

// Status represents the scheduling state of a task.
type Status string

const (
	// StatusWaiting means the task has unfinished dependencies.
	StatusWaiting Status = "waiting"

	// StatusPending means all dependencies are done and the task is
	// ready to be handed out to a worker.
	StatusPending Status = "pending"

	// StatusInProgress means a worker has picked the task up.
	StatusInProgress Status = "in_progress"

	// StatusDone means the task finished successfully.
	StatusDone Status = "done"

	// StatusFailed means the task finished with an error. Dependents
	// stay waiting forever; the scheduler never skips or cancels them.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// order maps each status to its position in the monotonic lifecycle
// waiting -> pending -> in_progress -> {done, failed}.
func (s Status) order() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusDone, StatusFailed:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from s to next respects the
// monotonic status order. Statuses never regress; the operator reset
// mechanism bypasses this check deliberately.
func (s Status) CanTransition(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	return next.order() > s.order()
}

// UnassignedRank marks a task that has not been topologically sorted yet.
// Any task still carrying it after sorting signals a dependency loop.
const UnassignedRank = -1

// Description is one scheduled unit of work as stored in the plan file.
// It is created once by the scenario parser, wired up by the graph
// builder, and from then on only its Status field changes.
type Description struct {
	// Name uniquely identifies the task within a plan.
	Name string `json:"name"`

	// Algorithm is the registry key of the implementation; the
	// scheduler itself never interprets it.
	Algorithm string `json:"algorithm"`

	// Parameters are opaque option values passed to the implementation.
	Parameters map[string]string `json:"parameters,omitempty"`

	// Input and Output list resource names (datasets, files, features)
	// consumed and produced by this task.
	Input  []string `json:"input,omitempty"`
	Output []string `json:"output,omitempty"`

	// DependsOn holds the names of producer tasks that must reach
	// StatusDone first. Populated by the graph builder, immutable after
	// plan creation.
	DependsOn []string `json:"depends_on,omitempty"`

	// Rank is the topological execution order, assigned exactly once.
	Rank int `json:"rank"`

	// Status is the only mutable field after plan creation.
	Status Status `json:"status"`
}

// Clone returns a deep copy of the description.
func (d *Description) Clone() *Description {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Parameters != nil {
		cp.Parameters = make(map[string]string, len(d.Parameters))
		for k, v := range d.Parameters {
			cp.Parameters[k] = v
		}
	}
	cp.Input = append([]string(nil), d.Input...)
	cp.Output = append([]string(nil), d.Output...)
	cp.DependsOn = append([]string(nil), d.DependsOn...)
	return &cp
}

// DependsOnTask reports whether name is among the direct dependencies.
func (d *Description) DependsOnTask(name string) bool {
	for _, dep := range d.DependsOn {
		if dep == name {
			return true
		}
	}
	return false
}

// Task is a runnable unit of work instantiated from a Description.
// Perform executes outside any plan lock and may block arbitrarily;
// a returned error marks the task failed without crashing the worker.
type Task interface {
	// Name returns the task's plan-unique identity.
	Name() string

	// Perform executes the task using the description's parameters,
	// inputs and outputs.
	Perform(ctx context.Context) error
}

// Factory builds a Task from its description.
type Factory func(desc *Description) (Task, error)

// Registry maps algorithm names to task factories. It is not safe for
// concurrent mutation and is expected to be fully populated before
// workers start.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given algorithm name.
// Registering the same name twice is an error.
func (r *Registry) Register(algorithm string, f Factory) error {
	if algorithm == "" {
		return errors.New("algorithm name must not be empty")
	}
	if _, exists := r.factories[algorithm]; exists {
		return fmt.Errorf("algorithm %q already registered", algorithm)
	}
	r.factories[algorithm] = f
	return nil
}

// Resolve instantiates a Task for the description's algorithm.
func (r *Registry) Resolve(desc *Description) (Task, error) {
	f, ok := r.factories[desc.Algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %q (task %s)", ErrUnknownAlgorithm, desc.Algorithm, desc.Name)
	}
	t, err := f(desc)
	if err != nil {
		return nil, fmt.Errorf("instantiating task %s: %w", desc.Name, err)
	}
	return t, nil
}

// Known reports whether an algorithm name is registered.
func (r *Registry) Known(algorithm string) bool {
	_, ok := r.factories[algorithm]
	return ok
}
