package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the trigger check once a minute.
const DefaultSchedule = "@every 1m"

var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Runner executes one delivery cycle.
type Runner interface {
	Execute(ctx context.Context, now time.Time) ([]Outcome, error)
}

// Scheduler runs the trigger check on a cron schedule. A run that is still
// in progress when the next one fires causes that one to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	now    func() time.Time
	ctx    context.Context
}

// NewScheduler creates a scheduler for spec. An empty spec uses DefaultSchedule.
func NewScheduler(spec string, runner Runner) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}

	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	logger := cronLogger{logger: slog.Default().With("component", "scheduler")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner: runner,
		spec:   spec,
		now:    time.Now,
		ctx:    context.Background(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start begins firing the schedule. Runs use ctx for their store reads.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctxlog.With(ctx, "trigger", "scheduled")
	slog.Info("starting delivery scheduler", "schedule", s.spec)
	s.cron.Start()
}

// Stop stops the schedule and waits for a running check to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("delivery scheduler stopped")
	case <-ctx.Done():
		slog.Warn("delivery scheduler stop timed out", "error", ctx.Err())
	}
}

func (s *Scheduler) run() {
	if _, err := s.runner.Execute(s.ctx, s.now()); err != nil {
		ctxlog.FromContext(s.ctx).Error("scheduled trigger check failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
