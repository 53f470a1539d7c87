// Package scheduler runs periodic background jobs on a cron runner.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/berealtors/wrapsheet/internal/metrics"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron schedules in UTC. Runs of the same job never
// overlap; a run that is still going when the next tick fires is skipped.
type Scheduler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron
	start   sync.Once
}

func New(logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	return &Scheduler{
		logger:  logger,
		metrics: m,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
	}
}

// Every runs job each interval, the first run one interval from now. A failed
// run is logged and counted; the job keeps its schedule. A non-positive
// interval disables the job. Intervals are rounded down to whole seconds.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		s.logger.Info("scheduled job disabled", "job", name)
		return nil
	}
	if interval < time.Second {
		return fmt.Errorf("schedule %s: interval %s is below one second", name, interval)
	}
	return s.Spec(ctx, name, "@every "+interval.String(), job)
}

// Spec registers job under a cron expression such as "0 6 * * *" or
// "@every 15m".
func (s *Scheduler) Spec(ctx context.Context, name, spec string, job Job) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.Schedule(ctx, name, sched, job)
	s.logger.Info("scheduled job registered", "job", name, "spec", spec)
	return nil
}

// Schedule registers job under an arbitrary cron.Schedule and starts the
// runner if it is not running yet. Runs after ctx ends are skipped.
func (s *Scheduler) Schedule(ctx context.Context, name string, sched cron.Schedule, job Job) {
	s.cron.Schedule(sched, cron.NewChain(s.observe(name)).Then(boundJob{ctx: ctx, fn: job}))
	s.start.Do(s.cron.Start)
}

// boundJob is a Job tied to the context it was registered with.
type boundJob struct {
	ctx context.Context
	fn  Job
}

func (b boundJob) Run() { _ = b.run() }

func (b boundJob) run() error {
	if b.ctx.Err() != nil {
		return nil
	}
	return b.fn(b.ctx)
}

// observe recovers, logs and counts every run of the named job.
func (s *Scheduler) observe(name string) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		b, ok := j.(boundJob)
		if !ok {
			return j
		}
		return cron.FuncJob(func() {
			if b.ctx.Err() != nil {
				return
			}
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("scheduled job panicked", "job", name, "panic", r)
					s.count(name, "error")
				}
			}()
			err := b.run()
			s.count(name, metrics.Result(err))
			if err != nil {
				s.logger.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(start))
				return
			}
			s.logger.Info("scheduled job finished", "job", name, "duration", time.Since(start))
		})
	}
}

// Wait stops the runner and blocks until in-flight runs return.
func (s *Scheduler) Wait() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) count(name, outcome string) {
	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(name, outcome).Inc()
	}
}

// cronLogger routes the runner's own messages into slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
