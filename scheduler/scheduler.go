// Package scheduler drives a job's cron-expressed incremental schedule,
// grounded on the teacher's pulse/schedule.Ticker lifecycle (Start/Stop,
// context cancellation, structured event logging) and the original tool's
// croniter-based scheduler.py, but using a cron-expression parser
// (github.com/robfig/cron/v3) in place of both (see SPEC_FULL.md §4.3).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teranos/tsreplicate/internal/errors"
	"github.com/teranos/tsreplicate/internal/logger"
)

// RunFunc is the job body invoked at each scheduled tick.
type RunFunc func(ctx context.Context) error

// Scheduler runs one job's RunFunc on a cron schedule. Executions never
// overlap: a tick that lands while a previous run is still in flight is
// coalesced into a single pending flag rather than queued, so a job that
// occasionally overruns its interval runs once more as soon as the
// in-flight run completes, however many ticks fell during it
// (SPEC_FULL.md §4.3).
type Scheduler struct {
	jobName  string
	schedule cron.Schedule
	run      RunFunc
	log      *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler for jobName that invokes run according to
// cronExpr (standard 5-field cron, parsed in UTC).
func New(jobName, cronExpr string, run RunFunc) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cron expression %q", cronExpr)
	}

	return &Scheduler{
		jobName:  jobName,
		schedule: schedule,
		run:      run,
		log:      logger.ComponentLogger("scheduler").With(logger.FieldJobName, jobName),
	}, nil
}

// Start begins the schedule loop in a background goroutine. It returns
// immediately; call Stop to shut down gracefully.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop()
	s.log.Infow("scheduler started", "next_run", s.schedule.Next(time.Now().UTC()))
}

// Stop cancels the schedule loop and waits for any in-flight run to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.log.Infow("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	now := time.Now().UTC()
	next := s.schedule.Next(now)

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case tick := <-timer.C:
			s.onTick(tick.UTC())
			next = s.schedule.Next(tick.UTC())
		}
	}
}

// onTick fires at a scheduled instant. If a run is already in progress it
// sets pending and returns immediately — coalescing rather than stacking
// up queued executions — and the in-flight run's completion drains any
// pending tick exactly once.
func (s *Scheduler) onTick(at time.Time) {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		s.log.Warnw("tick arrived while previous run still in flight, coalescing", "tick", at)
		return
	}
	s.running = true
	s.mu.Unlock()

	s.executeOnce(at)

	s.mu.Lock()
	drainPending := s.pending
	s.pending = false
	s.running = false
	s.mu.Unlock()

	if drainPending {
		s.log.Infow("draining coalesced tick")
		s.onTick(time.Now().UTC())
	}
}

func (s *Scheduler) executeOnce(at time.Time) {
	start := time.Now()
	s.log.Infow("run starting", "scheduled_for", at)

	if err := s.run(s.ctx); err != nil {
		s.log.Errorw("run failed", logger.FieldError, err, logger.FieldDurationMS, time.Since(start).Milliseconds())
		return
	}
	s.log.Infow("run succeeded", logger.FieldDurationMS, time.Since(start).Milliseconds())
}

// RunOnce invokes run a single time, outside the schedule loop. The
// orchestrator does not call it: an "incremental" job with an empty
// schedule runs through Processor.Run directly, like a "range" job.
func RunOnce(ctx context.Context, run RunFunc) error {
	return run(ctx)
}
