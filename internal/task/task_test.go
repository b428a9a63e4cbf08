package task

import (
	"context"
	"errors"
	"testing"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusWaiting, StatusPending, true},
		{StatusWaiting, StatusInProgress, true},
		{StatusPending, StatusInProgress, true},
		{StatusInProgress, StatusDone, true},
		{StatusInProgress, StatusFailed, true},
		{StatusPending, StatusWaiting, false},
		{StatusInProgress, StatusPending, false},
		{StatusDone, StatusFailed, false},
		{StatusDone, StatusInProgress, false},
		{StatusFailed, StatusPending, false},
		{StatusInProgress, StatusInProgress, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusWaiting, StatusPending, StatusInProgress} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusDone, StatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestDescriptionClone(t *testing.T) {
	orig := &Description{
		Name:       "merge-1",
		Algorithm:  "file-merge",
		Parameters: map[string]string{"sep": "\t"},
		Input:      []string{"a.txt", "b.txt"},
		Output:     []string{"out.txt"},
		DependsOn:  []string{"gen-1"},
		Rank:       3,
		Status:     StatusWaiting,
	}

	cp := orig.Clone()
	cp.Parameters["sep"] = ","
	cp.Input[0] = "changed"
	cp.DependsOn[0] = "changed"

	if orig.Parameters["sep"] != "\t" {
		t.Error("Clone shares Parameters map with original")
	}
	if orig.Input[0] != "a.txt" {
		t.Error("Clone shares Input slice with original")
	}
	if orig.DependsOn[0] != "gen-1" {
		t.Error("Clone shares DependsOn slice with original")
	}
}

type nopTask struct{ name string }

func (n nopTask) Name() string                    { return n.name }
func (n nopTask) Perform(_ context.Context) error { return nil }

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register("noop", func(desc *Description) (Task, error) {
		return nopTask{name: desc.Name}, nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := reg.Register("noop", nil); err == nil {
		t.Error("duplicate registration should fail")
	}

	tk, err := reg.Resolve(&Description{Name: "t1", Algorithm: "noop"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if tk.Name() != "t1" {
		t.Errorf("expected task name t1, got %s", tk.Name())
	}

	_, err = reg.Resolve(&Description{Name: "t2", Algorithm: "missing"})
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}

	if !reg.Known("noop") || reg.Known("missing") {
		t.Error("Known gave wrong answers")
	}
}
