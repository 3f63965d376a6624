package viewer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronScheduler runs recurring jobs on robfig/cron. Runs of the same job
// never overlap: a tick that arrives while the previous run is still going
// is skipped.
type CronScheduler struct {
	logger cron.Logger
}

// NewCronScheduler creates a scheduler that logs through logger.
func NewCronScheduler(logger *slog.Logger) *CronScheduler {
	return &CronScheduler{logger: cronLogger{logger}}
}

// Every starts job on a fixed interval. Intervals below one second are
// rounded up by cron.
func (s *CronScheduler) Every(interval time.Duration, job func()) func() {
	c := cron.New(cron.WithLogger(s.logger))
	var wrapped cron.Job = cron.FuncJob(job)
	wrapped = cron.NewChain(cron.Recover(s.logger), cron.SkipIfStillRunning(s.logger)).Then(wrapped)
	c.Schedule(cron.Every(interval), wrapped)
	c.Start()

	var once sync.Once
	return func() {
		once.Do(func() { c.Stop() })
	}
}

// cronLogger forwards cron's logging to slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
