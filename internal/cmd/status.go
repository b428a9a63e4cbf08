package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuetschek/en-deep/internal/journal"
	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/task"
	"github.com/tuetschek/en-deep/internal/worker"
)

func newStatusCmd() *cobra.Command {
	var showAttempts bool

	cmd := &cobra.Command{
		Use:   "status <scenario.hcl>",
		Short: "Print the current plan state of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd, args[0], showAttempts)
		},
	}

	cmd.Flags().BoolVar(&showAttempts, "attempts", false,
		"include the attempt history of failed tasks")
	return cmd
}

func printStatus(cmd *cobra.Command, scenarioPath string, showAttempts bool) error {
	store := plan.NewStore(scenarioPath)
	tasks, err := store.Snapshot()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no plan yet\n", scenarioPath)
		return nil
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Rank < tasks[j].Rank
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTASK\tALGORITHM\tSTATUS\tDEPENDS ON")
	var failed []string
	for _, t := range tasks {
		deps := ""
		for i, d := range t.DependsOn {
			if i > 0 {
				deps += ", "
			}
			deps += d
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.Rank, t.Name, t.Algorithm, t.Status, deps)
		if t.Status == task.StatusFailed {
			failed = append(failed, t.Name)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	progress := worker.Progress(tasks)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d done, %d failed, %d in progress, %d pending, %d waiting\n",
		progress.Done, progress.Total, progress.Failed, progress.InProgress,
		progress.Pending, progress.Waiting)

	if showAttempts && len(failed) > 0 {
		return printAttempts(cmd, scenarioPath, failed)
	}
	return nil
}

func printAttempts(cmd *cobra.Command, scenarioPath string, names []string) error {
	j, err := journal.Open(cmd.Context(), scenarioPath+".journal.db")
	if err != nil {
		return err
	}
	defer j.Close()

	for _, name := range names {
		attempts, err := j.Attempts(cmd.Context(), name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", name)
		for _, a := range attempts {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s  worker %d  %s", a.StartedAt.Format("2006-01-02 15:04:05"), a.Worker, a.Outcome)
			if a.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ": %s", a.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}
	return nil
}
