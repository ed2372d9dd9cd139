// Package sweep periodically recomputes the progress of every project, which
// repairs values left stale by failed or concurrent recomputes.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"piktram/internal/models"
	"piktram/internal/reconcile"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Recomputer is the part of the reconciler the sweep drives.
type Recomputer interface {
	RecomputeAll(ctx context.Context, caller models.Caller) ([]reconcile.Progress, error)
}

// Sweeper runs RecomputeAll on a cron schedule.
type Sweeper struct {
	recomputer Recomputer
	schedule   cron.Schedule
	expr       string
	logger     *slog.Logger
}

// New parses the cron expression expr. An empty expr returns a disabled Sweeper.
func New(r Recomputer, expr string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{recomputer: r, expr: expr, logger: logger}
	if expr == "" {
		return s, nil
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", expr, err)
	}
	s.schedule = sched
	return s, nil
}

// Enabled reports whether a schedule is set.
func (s *Sweeper) Enabled() bool {
	return s.schedule != nil
}

// Next returns the next fire time after t, zero when disabled.
func (s *Sweeper) Next(t time.Time) time.Time {
	if s.schedule == nil {
		return time.Time{}
	}
	return s.schedule.Next(t)
}

// Start blocks until ctx is done, sweeping on every tick. A disabled
// Sweeper returns at once.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("progress sweep disabled")
		return
	}

	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.RunOnce(ctx) }))
	c.Start()
	s.logger.Info("progress sweep scheduled", slog.String("schedule", s.expr), slog.Time("next", s.Next(time.Now())))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("progress sweep stopped")
}

// RunOnce recomputes every project and reports how many values changed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	results, err := s.recomputer.RecomputeAll(ctx, models.Admin())

	written := 0
	for _, p := range results {
		if p.Written {
			written++
		}
	}
	attrs := []any{
		slog.Int("projects", len(results)),
		slog.Int("written", written),
		slog.Duration("took", time.Since(started)),
	}
	if err != nil {
		s.logger.Warn("progress sweep finished with errors", append(attrs, slog.String("error", err.Error()))...)
		return written, err
	}
	s.logger.Info("progress sweep finished", attrs...)
	return written, nil
}
