package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/tui"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <scenario.hcl>",
		Short: "Follow another process's run in a live plan view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := plan.NewStore(args[0])
			if err := store.EnsureExists(); err != nil {
				return err
			}

			model, err := tui.New(store, nil)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}
