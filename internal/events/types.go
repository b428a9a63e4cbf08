package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskName() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicPlan = "plan"
)

// Event type constants
const (
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypePlanProgress  = "plan.progress"
)

// TaskStartedEvent is published when a worker begins executing a task.
type TaskStartedEvent struct {
	Name      string
	Algorithm string
	Worker    int
	Attempt   string
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskName() string  { return e.Name }

// TaskCompletedEvent is published when a task finishes successfully.
type TaskCompletedEvent struct {
	Name      string
	Worker    int
	Attempt   string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskName() string  { return e.Name }

// TaskFailedEvent is published when a task's Perform returns an error.
type TaskFailedEvent struct {
	Name      string
	Worker    int
	Attempt   string
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskName() string  { return e.Name }

// PlanProgressEvent is published whenever the observed plan status
// counts change.
type PlanProgressEvent struct {
	Total      int
	Waiting    int
	Pending    int
	InProgress int
	Done       int
	Failed     int
	Timestamp  time.Time
}

func (e PlanProgressEvent) EventType() string { return EventTypePlanProgress }
func (e PlanProgressEvent) TaskName() string  { return "" }
