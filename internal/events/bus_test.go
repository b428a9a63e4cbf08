package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, TaskStartedEvent{
		Name:      "train.model",
		Algorithm: "weka-classify",
		Worker:    1,
		Timestamp: time.Now(),
	})

	select {
	case received := <-ch:
		if received.TaskName() != "train.model" {
			t.Errorf("task name = %q", received.TaskName())
		}
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("event type = %q", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1 := bus.Subscribe(TopicTask, 10)
	ch2 := bus.Subscribe(TopicTask, 10)

	bus.Publish(TopicTask, TaskCompletedEvent{
		Name:      "eval",
		Duration:  100 * time.Millisecond,
		Timestamp: time.Now(),
	})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.TaskName() != "eval" {
				t.Errorf("subscriber %d: task name = %q", i+1, received.TaskName())
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d: timeout waiting for event", i+1)
		}
	}
}

func TestNonBlockingPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe(TopicTask, 1)

	done := make(chan bool)
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(TopicTask, TaskStartedEvent{Name: "t", Timestamp: time.Now()})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("publisher blocked on a full subscriber channel")
	}

	select {
	case received := <-ch:
		if received == nil {
			t.Error("received nil event")
		}
	default:
		t.Error("expected at least one buffered event")
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicTask, 10)

	bus.Close()

	received := 0
	for range ch {
		received++
	}
	if received != 0 {
		t.Errorf("received %d events after close", received)
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TopicTask, 10)
	bus.Close()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("publish after close panicked: %v", r)
		}
	}()
	bus.Publish(TopicTask, TaskFailedEvent{Name: "x", Timestamp: time.Now()})

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event after close")
		}
	default:
	}
}

func TestTopicIsolation(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	taskCh := bus.Subscribe(TopicTask, 10)
	planCh := bus.Subscribe(TopicPlan, 10)

	bus.Publish(TopicTask, TaskStartedEvent{Name: "a", Timestamp: time.Now()})
	bus.Publish(TopicPlan, PlanProgressEvent{Total: 3, Done: 1, Timestamp: time.Now()})

	select {
	case received := <-taskCh:
		if received.EventType() != EventTypeTaskStarted {
			t.Errorf("task channel got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("task channel: timeout")
	}

	select {
	case received := <-planCh:
		if received.EventType() != EventTypePlanProgress {
			t.Errorf("plan channel got %s", received.EventType())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("plan channel: timeout")
	}

	select {
	case e := <-taskCh:
		t.Errorf("task channel leaked %s", e.EventType())
	default:
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	all := bus.SubscribeAll(10)

	bus.Publish(TopicTask, TaskStartedEvent{Name: "a", Timestamp: time.Now()})
	bus.Publish(TopicPlan, PlanProgressEvent{Total: 1, Timestamp: time.Now()})

	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-all:
			types[e.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout on all-topics channel")
		}
	}
	if !types[EventTypeTaskStarted] || !types[EventTypePlanProgress] {
		t.Errorf("all-topics subscriber missed events: %v", types)
	}
}
