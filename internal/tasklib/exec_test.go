package tasklib

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tuetschek/en-deep/internal/task"
)

func TestExecRunsProgram(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	tk, err := newExecTask(&task.Description{
		Name:       "touch",
		Parameters: map[string]string{"command": "touch"},
		Output:     []string{out},
	}, dir)
	if err != nil {
		t.Fatalf("newExecTask: %v", err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not created: %v", err)
	}
}

func TestExecNonzeroExitFailsTask(t *testing.T) {
	tk, err := newExecTask(&task.Description{
		Name:       "fail",
		Parameters: map[string]string{"command": "false"},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err == nil {
		t.Error("expected error for nonzero exit")
	}
}

func TestExecStderrInError(t *testing.T) {
	tk, err := newExecTask(&task.Description{
		Name: "sh",
		Parameters: map[string]string{
			"command": "sh",
			"args":    "-c exit_with_noise",
		},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	err = tk.Perform(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "sh") {
		t.Errorf("error lacks command context: %v", err)
	}
}

func TestExecRequiresCommand(t *testing.T) {
	if _, err := newExecTask(&task.Description{Name: "x"}, ""); err == nil {
		t.Error("expected error for missing command parameter")
	}
}
