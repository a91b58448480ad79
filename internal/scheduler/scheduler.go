// Package scheduler runs the digest pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"reddigest/internal/pipeline"
	"reddigest/internal/timewindow"
)

// Runner executes one digest cycle over a window.
type Runner interface {
	Run(ctx context.Context, w timewindow.Window) (*pipeline.Result, error)
}

// Scheduler fires the runner on a cron expression. Each firing covers the
// configured lookback ending at the firing time.
type Scheduler struct {
	runner       Runner
	spec         string
	lookbackDays int
	runOnStart   bool

	cron *cron.Cron
}

// New creates a scheduler. An empty spec defaults to daily at 08:00.
func New(runner Runner, spec string, lookbackDays int, runOnStart bool) *Scheduler {
	if spec == "" {
		spec = "0 8 * * *"
	}
	if lookbackDays <= 0 {
		lookbackDays = timewindow.DefaultDays
	}
	return &Scheduler{
		runner:       runner,
		spec:         spec,
		lookbackDays: lookbackDays,
		runOnStart:   runOnStart,
	}
}

// Run starts the cron loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStart {
		fmt.Fprintln(os.Stderr, "scheduler: initial run")
		s.fire(ctx)
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	fmt.Fprintf(os.Stderr, "scheduler: running (cron %q, lookback %d days)\n",
		s.spec, s.lookbackDays)

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "scheduler: stopping")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (s *Scheduler) fire(ctx context.Context) {
	now := time.Now().UTC()
	w := timewindow.Window{
		Start: now.Add(-time.Duration(s.lookbackDays) * 24 * time.Hour),
		End:   now,
	}

	res, err := s.runner.Run(ctx, w)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: run failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "scheduler: run finished, %d posts selected\n",
		len(res.Document.Posts))
}
