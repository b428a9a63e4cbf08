package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuetschek/en-deep/internal/config"
	"github.com/tuetschek/en-deep/internal/events"
	"github.com/tuetschek/en-deep/internal/journal"
	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/scenario"
	"github.com/tuetschek/en-deep/internal/scheduler"
	"github.com/tuetschek/en-deep/internal/task"
)

// ErrTasksFailed is returned by Run when the plan drained but at least
// one task ended failed.
var ErrTasksFailed = errors.New("some tasks failed")

// Options configures one scheduler invocation.
type Options struct {
	ScenarioPath string
	Settings     *config.Settings
	Registry     *task.Registry

	// ResetPrefixes, when non-empty, forces matching tasks and their
	// transitive dependents back to a restartable status before any
	// worker starts.
	ResetPrefixes []string

	// ParseOnly stops after scenario parsing and plan validation,
	// touching no files.
	ParseOnly bool

	Bus    *events.Bus
	Logger *slog.Logger
}

// Run executes a scenario to completion: parse, build or join the
// shared plan, run the worker pool, and report. Multiple processes may
// Run the same scenario concurrently; the plan file coordinates them.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	sc, err := scenario.Parse(opts.ScenarioPath)
	if err != nil {
		return err
	}
	log.Info("scenario parsed", "path", opts.ScenarioPath, "tasks", len(sc.Tasks))

	if opts.ParseOnly {
		if _, err := scheduler.BuildPlan(sc); err != nil {
			return err
		}
		log.Info("scenario is valid")
		return nil
	}

	store := plan.NewStore(opts.ScenarioPath)
	if err := store.EnsureExists(); err != nil {
		return err
	}
	dispatcher := plan.NewDispatcher(store, opts.Registry, func() ([]*task.Description, error) {
		return scheduler.BuildPlan(sc)
	}, log)

	if len(opts.ResetPrefixes) > 0 {
		if err := dispatcher.Reset(opts.ResetPrefixes); err != nil {
			return err
		}
	}

	j, err := journal.Open(ctx, opts.ScenarioPath+".journal.db")
	if err != nil {
		return err
	}
	defer j.Close()

	runID, err := j.BeginRun(ctx, opts.ScenarioPath, opts.Settings.Threads)
	if err != nil {
		return err
	}
	log.Info("run started", "run_id", runID, "workers", opts.Settings.Threads)

	pool := NewPool(dispatcher, store, j, opts.Bus, log,
		opts.Settings.Threads, opts.Settings.RetrieveCount, runID)
	runErr := pool.Run(ctx)

	if err := j.FinishRun(ctx, runID); err != nil {
		log.Warn("journal write failed", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	failed, err := dispatcher.HasFailed()
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("%w: inspect the plan with the status command", ErrTasksFailed)
	}
	log.Info("run finished", "run_id", runID)
	return nil
}
