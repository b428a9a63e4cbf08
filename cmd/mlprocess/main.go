package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuetschek/en-deep/internal/cmd"
	"github.com/tuetschek/en-deep/internal/worker"
)

func main() {
	// Signal-aware context for graceful shutdown. In-progress tasks
	// are abandoned in the plan and need a reset on the next run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, worker.ErrTasksFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
