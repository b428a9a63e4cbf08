// Package tasklib contains the built-in file manipulation algorithms.
// They cover the plumbing steps of a pipeline: concatenating shards,
// splitting large inputs into chunks and plain copies. Everything else
// is expected to come from algorithms registered by the embedding
// program.
package tasklib

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tuetschek/en-deep/internal/task"
)

// RegisterBuiltins adds every built-in algorithm to the registry.
// Relative input and output paths are resolved against workDir.
func RegisterBuiltins(reg *task.Registry, workDir string) error {
	builtins := map[string]task.Factory{
		"file-merge": func(d *task.Description) (task.Task, error) {
			return newMergeTask(d, workDir)
		},
		"file-split": func(d *task.Description) (task.Task, error) {
			return newSplitTask(d, workDir)
		},
		"file-copy": func(d *task.Description) (task.Task, error) {
			return newCopyTask(d, workDir)
		},
	}
	for name, f := range builtins {
		if err := reg.Register(name, f); err != nil {
			return err
		}
	}
	return RegisterExec(reg, workDir)
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}

func resolveAll(workDir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = resolve(workDir, p)
	}
	return out
}

// mergeTask concatenates groups of input files into output files.
// The input count must be divisible by the output count; inputs are
// assigned to outputs in order, in equal-sized groups.
type mergeTask struct {
	name    string
	inputs  []string
	outputs []string
}

func newMergeTask(d *task.Description, workDir string) (task.Task, error) {
	if len(d.Output) == 0 {
		return nil, fmt.Errorf("task %s: file-merge needs at least one output", d.Name)
	}
	if len(d.Input) == 0 || len(d.Input)%len(d.Output) != 0 {
		return nil, fmt.Errorf("task %s: input count %d is not divisible by output count %d",
			d.Name, len(d.Input), len(d.Output))
	}
	return &mergeTask{
		name:    d.Name,
		inputs:  resolveAll(workDir, d.Input),
		outputs: resolveAll(workDir, d.Output),
	}, nil
}

func (t *mergeTask) Name() string { return t.name }

func (t *mergeTask) Perform(ctx context.Context) error {
	group := len(t.inputs) / len(t.outputs)
	for i, outPath := range t.outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := mergeGroup(t.inputs[i*group:(i+1)*group], outPath); err != nil {
			return fmt.Errorf("task %s: %w", t.name, err)
		}
	}
	return nil
}

func mergeGroup(inputs []string, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, inPath := range inputs {
		in, err := os.Open(inPath)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, in)
		in.Close()
		if err != nil {
			return fmt.Errorf("merging %s: %w", inPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return out.Close()
}

// splitTask splits one input file into the output files, line by line.
// Exactly one of the parameters must be set:
//
//	chunks       split into len(outputs) pieces of near-equal line count
//	chunk_size   fixed lines per output, last output takes the rest
type splitTask struct {
	name      string
	input     string
	outputs   []string
	chunkSize int
}

func newSplitTask(d *task.Description, workDir string) (task.Task, error) {
	if len(d.Input) != 1 {
		return nil, fmt.Errorf("task %s: file-split takes exactly one input, got %d", d.Name, len(d.Input))
	}
	if len(d.Output) < 2 {
		return nil, fmt.Errorf("task %s: file-split needs at least two outputs", d.Name)
	}

	_, hasChunks := d.Parameters["chunks"]
	sizeStr, hasSize := d.Parameters["chunk_size"]
	if hasChunks == hasSize {
		return nil, fmt.Errorf("task %s: exactly one of chunks or chunk_size must be set", d.Name)
	}

	t := &splitTask{
		name:    d.Name,
		input:   resolve(workDir, d.Input[0]),
		outputs: resolveAll(workDir, d.Output),
	}
	if hasSize {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return nil, fmt.Errorf("task %s: invalid chunk_size %q", d.Name, sizeStr)
		}
		t.chunkSize = size
	}
	return t, nil
}

func (t *splitTask) Name() string { return t.name }

func (t *splitTask) Perform(ctx context.Context) error {
	lines, err := readLines(t.input)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.name, err)
	}

	size := t.chunkSize
	if size == 0 {
		// Equal chunks; the first len(lines)%n outputs get one extra.
		size = len(lines) / len(t.outputs)
	}

	pos := 0
	extra := 0
	if t.chunkSize == 0 {
		extra = len(lines) % len(t.outputs)
	}
	for i, outPath := range t.outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := size
		if t.chunkSize == 0 && i < extra {
			n++
		}
		if t.chunkSize > 0 && i == len(t.outputs)-1 {
			n = len(lines) - pos
		}
		if pos+n > len(lines) {
			n = len(lines) - pos
		}
		if err := writeLines(outPath, lines[pos:pos+n]); err != nil {
			return fmt.Errorf("task %s: %w", t.name, err)
		}
		pos += n
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			f.Close()
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// copyTask copies inputs to outputs one to one.
type copyTask struct {
	name    string
	inputs  []string
	outputs []string
}

func newCopyTask(d *task.Description, workDir string) (task.Task, error) {
	if len(d.Input) == 0 || len(d.Input) != len(d.Output) {
		return nil, fmt.Errorf("task %s: file-copy needs matching input and output counts, got %d and %d",
			d.Name, len(d.Input), len(d.Output))
	}
	return &copyTask{
		name:    d.Name,
		inputs:  resolveAll(workDir, d.Input),
		outputs: resolveAll(workDir, d.Output),
	}, nil
}

func (t *copyTask) Name() string { return t.name }

func (t *copyTask) Perform(ctx context.Context) error {
	for i, inPath := range t.inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(inPath, t.outputs[i]); err != nil {
			return fmt.Errorf("task %s: %w", t.name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
