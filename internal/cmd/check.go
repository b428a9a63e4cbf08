package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuetschek/en-deep/internal/task"
	"github.com/tuetschek/en-deep/internal/tasklib"
	"github.com/tuetschek/en-deep/internal/worker"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <scenario.hcl>",
		Short: "Parse and validate a scenario without touching any files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}

			registry := task.NewRegistry()
			if err := tasklib.RegisterBuiltins(registry, workDirFor(settings, args[0])); err != nil {
				return err
			}

			err = worker.Run(cmd.Context(), worker.Options{
				ScenarioPath: args[0],
				Settings:     settings,
				Registry:     registry,
				ParseOnly:    true,
				Logger:       newLogger(settings),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}
}
