package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestAttemptLifecycle(t *testing.T) {
	ctx := context.Background()
	j, err := OpenMemory(ctx)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer j.Close()

	runID, err := j.BeginRun(ctx, "scenario.hcl", 4)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	attemptID, err := j.RecordStart(ctx, runID, "train", "weka-classify", 2)
	if err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	if err := j.RecordOutcome(ctx, attemptID, OutcomeDone, nil); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if err := j.FinishRun(ctx, runID); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	attempts, err := j.Attempts(ctx, "train")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("got %d attempts, want 1", len(attempts))
	}
	a := attempts[0]
	if a.Outcome != OutcomeDone || a.Worker != 2 || a.Algorithm != "weka-classify" {
		t.Errorf("attempt = %+v", a)
	}
	if a.Error != "" {
		t.Errorf("error = %q, want empty", a.Error)
	}
}

func TestFailedAttemptKeepsError(t *testing.T) {
	ctx := context.Background()
	j, err := OpenMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	runID, _ := j.BeginRun(ctx, "s.hcl", 1)
	attemptID, _ := j.RecordStart(ctx, runID, "eval", "file-merge", 0)
	if err := j.RecordOutcome(ctx, attemptID, OutcomeFailed, errors.New("input missing")); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	attempts, err := j.Attempts(ctx, "eval")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != OutcomeFailed {
		t.Fatalf("attempts = %+v", attempts)
	}
	if attempts[0].Error != "input missing" {
		t.Errorf("error = %q", attempts[0].Error)
	}
}

func TestRecordOutcomeUnknownAttempt(t *testing.T) {
	ctx := context.Background()
	j, err := OpenMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if err := j.RecordOutcome(ctx, "no-such-id", OutcomeDone, nil); err == nil {
		t.Error("expected error for unknown attempt id")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "scenario.journal.db")
	j, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	if _, err := j.BeginRun(ctx, "scenario.hcl", 1); err != nil {
		t.Errorf("BeginRun on fresh file: %v", err)
	}
}

func TestAttemptsOrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	j, err := OpenMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	runID, _ := j.BeginRun(ctx, "s.hcl", 1)
	first, _ := j.RecordStart(ctx, runID, "train", "nop", 0)
	second, _ := j.RecordStart(ctx, runID, "train", "nop", 1)

	attempts, err := j.Attempts(ctx, "train")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}
	if attempts[0].ID != first || attempts[1].ID != second {
		t.Errorf("attempts out of order: %s, %s", attempts[0].ID, attempts[1].ID)
	}
}
