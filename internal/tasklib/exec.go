package tasklib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/tuetschek/en-deep/internal/task"
)

// RegisterExec adds the "exec" algorithm, which hands a task to an
// external program. Parameters:
//
//	command  the program to run (required)
//	args     extra arguments, whitespace separated (optional)
//
// The resolved input paths are appended to the arguments, followed by
// the output paths. A nonzero exit status fails the task.
func RegisterExec(reg *task.Registry, workDir string) error {
	return reg.Register("exec", func(d *task.Description) (task.Task, error) {
		return newExecTask(d, workDir)
	})
}

type execTask struct {
	name    string
	command string
	args    []string
	dir     string
}

func newExecTask(d *task.Description, workDir string) (task.Task, error) {
	command := d.Parameters["command"]
	if command == "" {
		return nil, fmt.Errorf("task %s: exec needs a command parameter", d.Name)
	}

	args := strings.Fields(d.Parameters["args"])
	args = append(args, resolveAll(workDir, d.Input)...)
	args = append(args, resolveAll(workDir, d.Output)...)

	return &execTask{
		name:    d.Name,
		command: command,
		args:    args,
		dir:     workDir,
	}, nil
}

func (t *execTask) Name() string { return t.name }

// Perform runs the program in its own process group so cancellation
// takes down any children it spawned as well.
func (t *execTask) Perform(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.command, t.args...)
	cmd.Dir = t.dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout, stderr, err := drainCommand(cmd)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.name, err)
	}
	_ = stdout
	_ = stderr
	return nil
}

// drainCommand runs cmd, reading stdout and stderr concurrently so a
// chatty program cannot deadlock on a full pipe before Wait.
func drainCommand(cmd *exec.Cmd) (stdout, stderr []byte, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}

	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf bytes.Buffer
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderrBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	stdout = stdoutBuf.Bytes()
	stderr = stderrBuf.Bytes()

	if waitErr != nil {
		if len(stderr) > 0 {
			return stdout, stderr, fmt.Errorf("%s failed: %w (stderr: %s)",
				cmd.Path, waitErr, strings.TrimSpace(string(stderr)))
		}
		return stdout, stderr, fmt.Errorf("%s failed: %w", cmd.Path, waitErr)
	}
	return stdout, stderr, nil
}
