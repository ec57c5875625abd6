// Package cronsched runs bounded orchestrator passes on a cron schedule,
// for unattended nightly/periodic invocations alongside the interactive
// single-run CLI.
package cronsched

import (
	"context"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// RunFunc starts one fresh, independently-bounded event loop run. Scheduler
// never inspects or retries its result; a failed run is the run's own
// problem to log.
type RunFunc func(ctx context.Context)

// Config holds the dependencies for the cron scheduler.
type Config struct {
	Expr   string // standard 5-field cron expression
	Run    RunFunc
	Logger *slog.Logger
}

// Scheduler wraps a robfig/cron/v3 Cron instance, firing Run on cfg.Expr
// until Stop is called.
type Scheduler struct {
	cron   *cronlib.Cron
	expr   string
	run    RunFunc
	logger *slog.Logger
}

// NewScheduler parses cfg.Expr and prepares a Scheduler; the entry is not
// registered with the underlying cron engine until Start is called.
func NewScheduler(cfg Config) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser := cronlib.NewParser(
		cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
	)
	if _, err := parser.Parse(cfg.Expr); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:   cronlib.New(cronlib.WithParser(parser)),
		expr:   cfg.Expr,
		run:    cfg.Run,
		logger: logger,
	}, nil
}

// Start registers the schedule entry and begins the cron engine's own
// background goroutine. ctx is passed through to every fired RunFunc so a
// caller can bound or cancel in-flight runs.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.expr, func() {
		s.logger.Info("cronsched: firing scheduled run", "expr", s.expr)
		s.run(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cronsched: scheduler started", "expr", s.expr)
	return nil
}

// Stop halts the cron engine and waits for any in-flight invocation of the
// scheduler's own firing goroutine to return; it does not wait for RunFunc
// itself, which is the caller's responsibility to bound via ctx.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cronsched: scheduler stopped")
}

// NextRun reports when expr will next fire after now, for status reporting.
func NextRun(expr string, now time.Time) (time.Time, error) {
	parser := cronlib.NewParser(
		cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow,
	)
	sched, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}
