package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tuetschek/en-deep/internal/config"
	"github.com/tuetschek/en-deep/internal/events"
	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/task"
	"github.com/tuetschek/en-deep/internal/tasklib"
	"github.com/tuetschek/en-deep/internal/tui"
	"github.com/tuetschek/en-deep/internal/worker"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var resetPrefixes []string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <scenario.hcl>",
		Short: "Execute a scenario, joining any run already in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			return runScenario(cmd.Context(), args[0], settings, resetPrefixes, watch)
		},
	}

	cmd.Flags().StringSliceVar(&resetPrefixes, "reset", nil,
		"task name prefixes to force back to a restartable status (with dependents)")
	cmd.Flags().BoolVar(&watch, "watch", false, "show the live plan view while running")
	return cmd
}

func runScenario(ctx context.Context, scenarioPath string, settings *config.Settings,
	resetPrefixes []string, watch bool) error {
	log := newLogger(settings)

	registry := task.NewRegistry()
	if err := tasklib.RegisterBuiltins(registry, workDirFor(settings, scenarioPath)); err != nil {
		return err
	}

	// Extra processes join the same plan file; only the parent spawns.
	children, err := spawnInstances(ctx, settings, scenarioPath, log)
	if err != nil {
		return err
	}
	defer waitInstances(children, log)

	opts := worker.Options{
		ScenarioPath:  scenarioPath,
		Settings:      settings,
		Registry:      registry,
		ResetPrefixes: resetPrefixes,
		Logger:        log,
	}

	if !watch {
		return worker.Run(ctx, opts)
	}

	bus := events.NewBus()
	defer bus.Close()
	opts.Bus = bus

	store := plan.NewStore(scenarioPath)
	if err := store.EnsureExists(); err != nil {
		return err
	}
	model, err := tui.New(store, bus)
	if err != nil {
		return err
	}
	program := tea.NewProgram(model, tea.WithAltScreen())

	runErr := make(chan error, 1)
	go func() {
		runErr <- worker.Run(ctx, opts)
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	return <-runErr
}

// spawnInstances starts settings.Instances copies of this binary on
// the same scenario. Children run with instances forced to zero.
func spawnInstances(ctx context.Context, settings *config.Settings,
	scenarioPath string, log *slog.Logger) ([]*exec.Cmd, error) {
	if settings.Instances < 1 {
		return nil, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating own binary: %w", err)
	}

	var children []*exec.Cmd
	for i := 0; i < settings.Instances; i++ {
		child := exec.CommandContext(ctx, exe, "run", scenarioPath,
			"--instances", "0",
			"--threads", strconv.Itoa(settings.Threads),
			"--retrieve-count", strconv.Itoa(settings.RetrieveCount),
			"--workdir", workDirFor(settings, scenarioPath),
			"--log-level", settings.LogLevel,
		)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			waitInstances(children, log)
			return nil, fmt.Errorf("starting worker instance: %w", err)
		}
		log.Info("worker instance started", "instance", i+1, "child_pid", child.Process.Pid)
		children = append(children, child)
	}
	return children, nil
}

// waitInstances reaps child processes. A child exiting nonzero is
// expected when tasks failed; the parent reports failures itself.
func waitInstances(children []*exec.Cmd, log *slog.Logger) {
	for _, child := range children {
		if err := child.Wait(); err != nil {
			log.Debug("worker instance exited", "child_pid", child.Process.Pid, "error", err)
		}
	}
}
