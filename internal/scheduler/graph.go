// Package scheduler turns an unordered task list and its resource
// occurrence index into an ordered, runnable plan: it attaches
// dependency edges from producers to consumers, validates that the
// resulting graph is acyclic, and assigns every task a topological rank.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/tuetschek/en-deep/internal/scenario"
	"github.com/tuetschek/en-deep/internal/task"
)

// Plan/data errors. Both abort plan creation; nothing is persisted.
var (
	// ErrResourceNeverProduced means a dataset is consumed but no task
	// produces it. Only dataset-class resources are checked; files and
	// features without a producer are assumed to pre-exist.
	ErrResourceNeverProduced = errors.New("resource is consumed but never produced")

	// ErrLoopDependency means the dependency graph contains a cycle.
	ErrLoopDependency = errors.New("loop in task dependencies")
)

// BuildDependencies attaches dependency edges to the task descriptions
// in place, derived from the occurrence index: every consumer of a
// resource depends on its single producer. Dataset resources must have
// a producer; file and feature resources without one yield no edge.
// The task slice itself is not reordered.
func BuildDependencies(tasks []*task.Description, idx *scenario.Index) error {
	for _, class := range []scenario.ResourceClass{
		scenario.ClassDataset, scenario.ClassFile, scenario.ClassFeature,
	} {
		occurrences := idx.Class(class)

		// Walk resources in name order so the edge lists, and with
		// them the final task ranks, are deterministic.
		names := make([]string, 0, len(occurrences))
		for name := range occurrences {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			oc := occurrences[name]
			if oc.Producer == nil {
				if class.MandatoryProducer() && len(oc.Consumers) > 0 {
					return fmt.Errorf("%w: %s %q", ErrResourceNeverProduced, class, name)
				}
				continue
			}
			for _, consumer := range oc.Consumers {
				addEdge(oc.Producer, consumer)
			}
		}
	}
	return nil
}

// addEdge records that consumer depends on producer, skipping duplicate
// edges. A task consuming its own output keeps the self-edge so that
// cycle detection reports it.
func addEdge(producer, consumer *task.Description) {
	if consumer.DependsOnTask(producer.Name) {
		return
	}
	consumer.DependsOn = append(consumer.DependsOn, producer.Name)
}

// Validate runs an order-independent cycle check over the dependency
// edges before ranking. It also catches references to tasks that are
// missing from the plan entirely.
func Validate(tasks []*task.Description) error {
	byName := make(map[string]*task.Description, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t
	}

	var edges []toposort.Edge
	for _, t := range tasks {
		if len(t.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, t.Name})
			continue
		}
		for _, dep := range t.DependsOn {
			if _, exists := byName[dep]; !exists {
				return fmt.Errorf("task %q depends on unknown task %q", t.Name, dep)
			}
			edges = append(edges, toposort.Edge{dep, t.Name})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoopDependency, err)
	}

	// A lost task also means it sits on a cycle.
	found := make(map[string]bool, len(sorted))
	for _, id := range sorted {
		if id != nil {
			found[id.(string)] = true
		}
	}
	if len(found) != len(tasks) {
		var missing []string
		for _, t := range tasks {
			if !found[t.Name] {
				missing = append(missing, t.Name)
			}
		}
		return fmt.Errorf("%w: tasks %s", ErrLoopDependency, strings.Join(missing, ", "))
	}

	return nil
}

// Sort assigns execution ranks with Kahn's algorithm and returns the
// tasks in rank order. The queue is FIFO and seeded in input order, so
// the result is deterministic for a fixed input sequence. Initial
// statuses are set as a side effect: tasks without dependencies become
// pending, all others waiting.
func Sort(tasks []*task.Description) ([]*task.Description, error) {
	unranked := make(map[string]int, len(tasks))
	dependents := make(map[string][]*task.Description, len(tasks))

	for _, t := range tasks {
		t.Rank = task.UnassignedRank
		unranked[t.Name] = len(t.DependsOn)
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t)
		}
	}

	queue := make([]*task.Description, 0, len(tasks))
	for _, t := range tasks {
		if unranked[t.Name] == 0 {
			queue = append(queue, t)
		}
	}

	sorted := make([]*task.Description, 0, len(tasks))
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		t.Rank = len(sorted)
		sorted = append(sorted, t)

		for _, dep := range dependents[t.Name] {
			unranked[dep.Name]--
			if unranked[dep.Name] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	// Anything still carrying the sentinel rank sits on a cycle.
	if len(sorted) != len(tasks) {
		var looped []string
		for _, t := range tasks {
			if t.Rank == task.UnassignedRank {
				looped = append(looped, t.Name)
			}
		}
		return nil, fmt.Errorf("%w: tasks %s", ErrLoopDependency, strings.Join(looped, ", "))
	}

	for _, t := range sorted {
		if len(t.DependsOn) == 0 {
			t.Status = task.StatusPending
		} else {
			t.Status = task.StatusWaiting
		}
	}

	return sorted, nil
}

// BuildPlan is the full plan-creation pipeline: attach dependencies,
// validate, sort. It is a pure function of the scenario, so concurrent
// builders observe the same result or the same error.
func BuildPlan(sc *scenario.Scenario) ([]*task.Description, error) {
	if err := BuildDependencies(sc.Tasks, sc.Index); err != nil {
		return nil, err
	}
	if err := Validate(sc.Tasks); err != nil {
		return nil, err
	}
	return Sort(sc.Tasks)
}
