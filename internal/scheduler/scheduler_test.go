package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reddigest/internal/pipeline"
	"reddigest/internal/timewindow"
	"reddigest/pkg/digest"
)

type recordingRunner struct {
	mu      sync.Mutex
	windows []timewindow.Window
	err     error
}

func (r *recordingRunner) Run(ctx context.Context, w timewindow.Window) (*pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Result{Document: &digest.Document{}}, nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

func TestRunOnStart(t *testing.T) {
	runner := &recordingRunner{}
	s := New(runner, "0 8 * * *", 3, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for runner.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial run never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	w := runner.windows[0]
	if got := w.Duration(); got != 3*24*time.Hour {
		t.Errorf("window duration = %s, want 72h lookback", got)
	}
	if w.End.After(time.Now().UTC().Add(time.Minute)) {
		t.Errorf("window end %s should anchor at firing time", w.End)
	}
}

func TestRunRejectsBadCronSpec(t *testing.T) {
	s := New(&recordingRunner{}, "not a cron line", 7, false)
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("want error for invalid cron spec")
	}
}

func TestRunnerFailureDoesNotStopScheduler(t *testing.T) {
	runner := &recordingRunner{err: errors.New("fetch failed")}
	s := New(runner, "* * * * *", 7, true)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v, want deadline exceeded (loop kept going)", err)
	}
	if runner.count() == 0 {
		t.Error("initial run never fired")
	}
}
