// Package worker contains the execution side of a run: a pool of
// goroutines that claim tasks from the shared plan, perform them and
// report the outcomes back.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tuetschek/en-deep/internal/events"
	"github.com/tuetschek/en-deep/internal/journal"
	"github.com/tuetschek/en-deep/internal/plan"
	"github.com/tuetschek/en-deep/internal/task"
)

// Pool runs a fixed number of workers against one dispatcher. Workers
// exit when the plan is drained; any plan store failure aborts the
// whole pool, because after one the plan's contents can no longer be
// trusted.
type Pool struct {
	dispatcher *plan.Dispatcher
	store      *plan.Store
	journal    *journal.Journal
	bus        *events.Bus
	log        *slog.Logger

	workers  int
	retrieve int
	runID    string
}

// NewPool creates a pool of workers claiming up to retrieve tasks per
// dispatch. journal and bus may be nil.
func NewPool(d *plan.Dispatcher, s *plan.Store, j *journal.Journal, bus *events.Bus,
	log *slog.Logger, workers, retrieve int, runID string) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		dispatcher: d,
		store:      s,
		journal:    j,
		bus:        bus,
		log:        log,
		workers:    workers,
		retrieve:   retrieve,
		runID:      runID,
	}
}

// Run blocks until every worker has exited. It returns the first fatal
// error, or nil when the plan is drained. Individual task failures are
// recorded in the plan and do not produce an error here.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(gctx, id)
		})
	}
	return g.Wait()
}

// work is one worker's claim-perform-report loop.
func (p *Pool) work(ctx context.Context, id int) error {
	log := p.log.With("worker", id)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claims, err := p.dispatcher.NextPending(p.retrieve)
		if errors.Is(err, plan.ErrWorkInProgress) {
			wait := policy.NextBackOff()
			log.Debug("no task ready, backing off", "wait", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		if err != nil {
			return err
		}
		if claims == nil {
			log.Debug("plan drained, worker exiting")
			return nil
		}
		policy.Reset()

		for _, c := range claims {
			if err := p.execute(ctx, id, c); err != nil {
				return err
			}
		}
	}
}

// execute performs one claimed task outside any lock and records the
// outcome. Only plan store failures come back as errors.
func (p *Pool) execute(ctx context.Context, id int, c plan.Claim) error {
	log := p.log.With("worker", id, "task", c.Desc.Name, "algorithm", c.Desc.Algorithm)
	started := time.Now()

	attemptID := p.recordStart(ctx, c, id, log)
	p.publish(events.TopicTask, events.TaskStartedEvent{
		Name:      c.Desc.Name,
		Algorithm: c.Desc.Algorithm,
		Worker:    id,
		Attempt:   attemptID,
		Timestamp: started,
	})
	log.Info("task started")

	perr := c.Task.Perform(ctx)
	elapsed := time.Since(started)

	if perr != nil {
		log.Warn("task failed", "error", perr, "duration", elapsed)
		p.recordOutcome(ctx, attemptID, journal.OutcomeFailed, perr, log)
		p.publish(events.TopicTask, events.TaskFailedEvent{
			Name:      c.Desc.Name,
			Worker:    id,
			Attempt:   attemptID,
			Err:       perr,
			Duration:  elapsed,
			Timestamp: time.Now(),
		})
		if err := p.dispatcher.UpdateStatus(c.Desc.Name, task.StatusFailed); err != nil {
			return err
		}
	} else {
		log.Info("task done", "duration", elapsed)
		p.recordOutcome(ctx, attemptID, journal.OutcomeDone, nil, log)
		p.publish(events.TopicTask, events.TaskCompletedEvent{
			Name:      c.Desc.Name,
			Worker:    id,
			Attempt:   attemptID,
			Duration:  elapsed,
			Timestamp: time.Now(),
		})
		if err := p.dispatcher.UpdateStatus(c.Desc.Name, task.StatusDone); err != nil {
			return err
		}
	}

	p.publishProgress(log)
	return nil
}

// recordStart and recordOutcome treat the journal as best effort: a
// broken audit trail is logged, never fatal.
func (p *Pool) recordStart(ctx context.Context, c plan.Claim, id int, log *slog.Logger) string {
	if p.journal == nil {
		return ""
	}
	attemptID, err := p.journal.RecordStart(ctx, p.runID, c.Desc.Name, c.Desc.Algorithm, id)
	if err != nil {
		log.Warn("journal write failed", "error", err)
		return ""
	}
	return attemptID
}

func (p *Pool) recordOutcome(ctx context.Context, attemptID, outcome string, taskErr error, log *slog.Logger) {
	if p.journal == nil || attemptID == "" {
		return
	}
	if err := p.journal.RecordOutcome(ctx, attemptID, outcome, taskErr); err != nil {
		log.Warn("journal write failed", "error", err)
	}
}

func (p *Pool) publish(topic string, e events.Event) {
	if p.bus != nil {
		p.bus.Publish(topic, e)
	}
}

func (p *Pool) publishProgress(log *slog.Logger) {
	if p.bus == nil {
		return
	}
	tasks, err := p.store.Snapshot()
	if err != nil {
		log.Warn("progress snapshot failed", "error", err)
		return
	}
	p.bus.Publish(events.TopicPlan, Progress(tasks))
}

// Progress counts statuses into a plan progress event.
func Progress(tasks []*task.Description) events.PlanProgressEvent {
	e := events.PlanProgressEvent{Total: len(tasks), Timestamp: time.Now()}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusWaiting:
			e.Waiting++
		case task.StatusPending:
			e.Pending++
		case task.StatusInProgress:
			e.InProgress++
		case task.StatusDone:
			e.Done++
		case task.StatusFailed:
			e.Failed++
		}
	}
	return e
}
