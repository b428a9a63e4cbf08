// Package cmd wires the command line interface: run, check, status
// and watch subcommands over a shared settings layer.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tuetschek/en-deep/internal/config"
	"github.com/tuetschek/en-deep/internal/logging"
)

type rootFlags struct {
	threads       int
	instances     int
	retrieveCount int
	workDir       string
	logLevel      string
}

// Execute runs the CLI with the given arguments (excluding the program
// name).
func Execute(ctx context.Context, args []string) error {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "mlprocess",
		Short:         "Parallel batch task scheduler for file-based pipelines",
		Long:          "mlprocess runs declarative task scenarios: it derives the dependency graph\nfrom each task's inputs and outputs, persists an ordered plan next to the\nscenario and executes it with any number of cooperating processes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.IntVar(&flags.threads, "threads", 0, "worker goroutines per process (default: CPU count)")
	pf.IntVar(&flags.instances, "instances", -1, "extra worker processes to spawn")
	pf.IntVar(&flags.retrieveCount, "retrieve-count", 0, "tasks claimed per plan transaction")
	pf.StringVar(&flags.workDir, "workdir", "", "base directory for relative task paths (default: scenario directory)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(flags),
		newCheckCmd(flags),
		newStatusCmd(),
		newWatchCmd(),
	)

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// loadSettings merges config files with command-line overrides.
func loadSettings(flags *rootFlags) (*config.Settings, error) {
	settings, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if flags.threads != 0 {
		settings.Threads = flags.threads
	}
	if flags.instances >= 0 {
		settings.Instances = flags.instances
	}
	if flags.retrieveCount != 0 {
		settings.RetrieveCount = flags.retrieveCount
	}
	if flags.workDir != "" {
		settings.WorkDir = flags.workDir
	}
	if flags.logLevel != "" {
		settings.LogLevel = flags.logLevel
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// newLogger builds the process logger from settings.
func newLogger(settings *config.Settings) *slog.Logger {
	return logging.New(os.Stderr, settings.LogLevel)
}

// workDirFor resolves the effective work directory for a scenario.
func workDirFor(settings *config.Settings, scenarioPath string) string {
	if settings.WorkDir != "" {
		return settings.WorkDir
	}
	return filepath.Dir(scenarioPath)
}
