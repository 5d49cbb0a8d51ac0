package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Adda-Baaj/geopulse/internal/logger"
)

// DefaultInterval is the pause between ticks.
const DefaultInterval = 60 * time.Second

// ErrTickInProgress is returned when a tick is requested while another one runs.
var ErrTickInProgress = errors.New("aggregation tick already running")

// Runner executes one tick.
type Runner interface {
	Run(ctx context.Context) (TickReport, error)
}

// RunState is a point-in-time view of the scheduler.
type RunState struct {
	Running         bool        `json:"running"`
	Trigger         string      `json:"trigger,omitempty"`
	StartedAt       time.Time   `json:"startedAt,omitempty"`
	LastCompletedAt time.Time   `json:"lastCompletedAt,omitempty"`
	LastDurationMS  int64       `json:"lastDurationMs"`
	LastError       string      `json:"lastError,omitempty"`
	Ticks           int         `json:"ticks"`
	LastReport      *TickReport `json:"lastReport,omitempty"`
}

// Scheduler owns the ticker and the single-flight guard. One tick runs at Start, then every interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      logger.Logger

	mu      sync.Mutex
	running bool
	state   RunState

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler builds a Scheduler; a non-positive interval uses DefaultInterval.
func NewScheduler(runner Runner, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{runner: runner, interval: interval, log: logger.Ensure(log)}
}

// Start launches the loop. Calling Start on a started scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		s.tick(loopCtx, "startup")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.tick(loopCtx, "interval")
			}
		}
	}(s.done)

	s.log.InfoObj("aggregation scheduler started", "scheduler_start", map[string]any{
		"interval": s.interval.String(),
	})
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.InfoObj("aggregation scheduler stopped", "scheduler_stop", nil)
}

// RunNow runs a tick on the caller's goroutine unless one is already running.
func (s *Scheduler) RunNow(ctx context.Context) (TickReport, error) {
	return s.run(ctx, "manual")
}

// Snapshot returns a copy of the current state.
func (s *Scheduler) Snapshot() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.LastReport != nil {
		r := *st.LastReport
		st.LastReport = &r
	}
	return st
}

func (s *Scheduler) tick(ctx context.Context, trigger string) {
	if _, err := s.run(ctx, trigger); err != nil && !errors.Is(err, ErrTickInProgress) {
		s.log.ErrorObj("aggregation tick failed", "aggregation_tick_error", map[string]any{
			"trigger": trigger,
			"error":   err,
		})
	}
}

func (s *Scheduler) run(ctx context.Context, trigger string) (TickReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.WarnObj("tick skipped, previous tick still running", "aggregation_overlap", map[string]any{"trigger": trigger})
		return TickReport{}, ErrTickInProgress
	}
	started := time.Now()
	s.running = true
	s.state.Running = true
	s.state.Trigger = trigger
	s.state.StartedAt = started.UTC()
	s.mu.Unlock()

	report, err := s.runner.Run(ctx)
	took := time.Since(started)

	s.mu.Lock()
	s.running = false
	s.state.Running = false
	s.state.Trigger = ""
	s.state.LastCompletedAt = time.Now().UTC()
	s.state.LastDurationMS = took.Milliseconds()
	s.state.Ticks++
	s.state.LastReport = &report
	s.state.LastError = ""
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.mu.Unlock()

	if err == nil {
		s.log.InfoObj("aggregation tick finished", "aggregation_tick", map[string]any{
			"trigger":   trigger,
			"places":    report.Places,
			"skipped":   report.Skipped,
			"inserted":  report.Inserted(),
			"sweep_new": report.Sweep.Result.Inserted,
			"took_ms":   took.Milliseconds(),
		})
	}
	return report, err
}
