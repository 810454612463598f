// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/studysaathi/learning-backend/internal/logger"
)

// ReapSpec runs the idle-session reaper every minute.
const ReapSpec = "@every 1m"

// IdleReaper closes sessions that have been idle for longer than idle.
type IdleReaper interface {
	ReapIdle(ctx context.Context, idle time.Duration) int
}

// Scheduler wraps a cron runner bound to the server's lifetime.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  zerolog.Logger
}

// New creates a Scheduler. Jobs receive ctx.
func New(ctx context.Context, log zerolog.Logger) *Scheduler {
	log = logger.Component(log, "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{log: log}), cron.SkipIfStillRunning(cronLogger{log: log}))),
		ctx:  ctx,
		log:  log,
	}
}

// AddIdleReaper registers the idle-session reaper.
func (s *Scheduler) AddIdleReaper(spec string, reaper IdleReaper, idle time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ReapOnce(s.ctx, reaper, idle, s.log)
	})
	return err
}

// ReapOnce runs a single reaper pass.
func ReapOnce(ctx context.Context, reaper IdleReaper, idle time.Duration, log zerolog.Logger) int {
	if ctx.Err() != nil {
		return 0
	}
	n := reaper.ReapIdle(ctx, idle)
	if n > 0 {
		log.Info().Int("closed", n).Dur("idle", idle).Msg("Closed idle learning sessions")
	}
	return n
}

// Start runs the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
