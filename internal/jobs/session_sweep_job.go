package jobs

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSchedule checks for idle sessions once a minute
const DefaultSweepSchedule = "@every 1m"

// Sweeper drops sessions that have been idle for too long
type Sweeper interface {
	SweepIdle(maxIdle time.Duration) int
}

// SessionSweepJob periodically removes idle conversations from the session store
type SessionSweepJob struct {
	sweeper     Sweeper
	idleTimeout time.Duration
	schedule    string
	cron        *cron.Cron
	logger      *zap.Logger
}

// NewSessionSweepJob creates the sweeper job. An empty schedule runs it every minute.
func NewSessionSweepJob(sweeper Sweeper, idleTimeout time.Duration, schedule string, logger *zap.Logger) *SessionSweepJob {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweepJob{
		sweeper:     sweeper,
		idleTimeout: idleTimeout,
		schedule:    schedule,
		cron:        cron.New(),
		logger:      logger.With(zap.String("component", "session_sweep_job")),
	}
}

// Run performs a single sweep and returns how many sessions were removed
func (j *SessionSweepJob) Run() int {
	removed := j.sweeper.SweepIdle(j.idleTimeout)
	if removed > 0 {
		j.logger.Debug("session sweep finished", zap.Int("removed", removed))
	}
	return removed
}

// Start schedules the sweep
func (j *SessionSweepJob) Start() error {
	if j.sweeper == nil {
		return errors.New("session sweeper is required")
	}
	if j.idleTimeout <= 0 {
		j.logger.Info("session sweep disabled", zap.Duration("idle_timeout", j.idleTimeout))
		return nil
	}
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Run() }); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("session sweep job started",
		zap.String("schedule", j.schedule),
		zap.Duration("idle_timeout", j.idleTimeout),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *SessionSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("session sweep job stopped")
}
