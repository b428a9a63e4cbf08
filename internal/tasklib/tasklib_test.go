package tasklib

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tuetschek/en-deep/internal/task"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRegisterBuiltins(t *testing.T) {
	reg := task.NewRegistry()
	if err := RegisterBuiltins(reg, ""); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	for _, algo := range []string{"file-merge", "file-split", "file-copy"} {
		if !reg.Known(algo) {
			t.Errorf("algorithm %s not registered", algo)
		}
	}
}

func TestMergeConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\n")
	writeFile(t, dir, "b.txt", "two\n")

	tk, err := newMergeTask(&task.Description{
		Name:   "merge",
		Input:  []string{"a.txt", "b.txt"},
		Output: []string{"all.txt"},
	}, dir)
	if err != nil {
		t.Fatalf("newMergeTask: %v", err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "all.txt")); got != "one\ntwo\n" {
		t.Errorf("merged = %q", got)
	}
}

func TestMergeGroupsInputsPerOutput(t *testing.T) {
	dir := t.TempDir()
	for i, content := range []string{"1", "2", "3", "4"} {
		writeFile(t, dir, string(rune('a'+i))+".txt", content)
	}

	tk, err := newMergeTask(&task.Description{
		Name:   "merge",
		Input:  []string{"a.txt", "b.txt", "c.txt", "d.txt"},
		Output: []string{"x.txt", "y.txt"},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "x.txt")); got != "12" {
		t.Errorf("x = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "y.txt")); got != "34" {
		t.Errorf("y = %q", got)
	}
}

func TestMergeRejectsIndivisibleCounts(t *testing.T) {
	_, err := newMergeTask(&task.Description{
		Name:   "merge",
		Input:  []string{"a", "b", "c"},
		Output: []string{"x", "y"},
	}, "")
	if err == nil {
		t.Error("expected error for 3 inputs into 2 outputs")
	}
}

func TestSplitEqualChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "1\n2\n3\n4\n5\n")

	tk, err := newSplitTask(&task.Description{
		Name:       "split",
		Parameters: map[string]string{"chunks": "true"},
		Input:      []string{"in.txt"},
		Output:     []string{"p1.txt", "p2.txt"},
	}, dir)
	if err != nil {
		t.Fatalf("newSplitTask: %v", err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "p1.txt")); got != "1\n2\n3\n" {
		t.Errorf("p1 = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "p2.txt")); got != "4\n5\n" {
		t.Errorf("p2 = %q", got)
	}
}

func TestSplitFixedChunkSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "in.txt", "1\n2\n3\n4\n5\n")

	tk, err := newSplitTask(&task.Description{
		Name:       "split",
		Parameters: map[string]string{"chunk_size": "2"},
		Input:      []string{"in.txt"},
		Output:     []string{"p1.txt", "p2.txt"},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "p1.txt")); got != "1\n2\n" {
		t.Errorf("p1 = %q", got)
	}
	// Last output takes the remainder.
	if got := readFile(t, filepath.Join(dir, "p2.txt")); got != "3\n4\n5\n" {
		t.Errorf("p2 = %q", got)
	}
}

func TestSplitParameterValidation(t *testing.T) {
	base := &task.Description{
		Name:   "split",
		Input:  []string{"in.txt"},
		Output: []string{"a", "b"},
	}

	if _, err := newSplitTask(base, ""); err == nil {
		t.Error("expected error for missing parameters")
	}

	both := base.Clone()
	both.Parameters = map[string]string{"chunks": "true", "chunk_size": "2"}
	if _, err := newSplitTask(both, ""); err == nil {
		t.Error("expected error for mutually exclusive parameters")
	}

	bad := base.Clone()
	bad.Parameters = map[string]string{"chunk_size": "zero"}
	if _, err := newSplitTask(bad, ""); err == nil {
		t.Error("expected error for non-numeric chunk_size")
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src.txt", "payload")

	tk, err := newCopyTask(&task.Description{
		Name:   "copy",
		Input:  []string{"src.txt"},
		Output: []string{"dst.txt"},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, filepath.Join(dir, "dst.txt")); got != "payload" {
		t.Errorf("copied = %q", got)
	}
}

func TestCopyMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	tk, err := newCopyTask(&task.Description{
		Name:   "copy",
		Input:  []string{"ghost.txt"},
		Output: []string{"dst.txt"},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err == nil {
		t.Error("expected error for missing input file")
	}
}

func TestAbsolutePathsBypassWorkDir(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "x")
	dst := filepath.Join(dir, "dst.txt")

	tk, err := newCopyTask(&task.Description{
		Name:   "copy",
		Input:  []string{src},
		Output: []string{dst},
	}, "/somewhere/else")
	if err != nil {
		t.Fatal(err)
	}
	if err := tk.Perform(context.Background()); err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if got := readFile(t, dst); got != "x" {
		t.Errorf("copied = %q", got)
	}
}
