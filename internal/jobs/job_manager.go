package jobs

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job is a scheduled background task
type Job interface {
	Start() error
	Stop()
}

// JobManager coordinates the scheduled jobs of the server.
// Jobs start in order and stop in reverse order.
type JobManager struct {
	jobs    []Job
	started []Job
}

// NewJobManager creates a manager with the session sweeper registered
func NewJobManager(sweeper Sweeper, idleTimeout time.Duration, schedule string, logger *zap.Logger) *JobManager {
	return &JobManager{
		jobs: []Job{NewSessionSweepJob(sweeper, idleTimeout, schedule, logger)},
	}
}

// Add registers another job
func (jm *JobManager) Add(job Job) {
	jm.jobs = append(jm.jobs, job)
}

// StartAll starts all scheduled jobs.
// Jobs already started are stopped again when one fails.
func (jm *JobManager) StartAll() error {
	for i, job := range jm.jobs {
		if err := job.Start(); err != nil {
			jm.StopAll()
			return fmt.Errorf("failed to start job %d: %w", i, err)
		}
		jm.started = append(jm.started, job)
	}
	return nil
}

// StopAll stops all started jobs
func (jm *JobManager) StopAll() {
	for i := len(jm.started) - 1; i >= 0; i-- {
		jm.started[i].Stop()
	}
	jm.started = nil
}
