package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/jobs"
	"gitlab.com/socialfeed/worker/jobs/common"
)

const tick = 10 * time.Second

// Scheduler drives the registered jobs, launching each one when its
// interval has elapsed since its previous run.
type Scheduler struct {
	logger   *zap.Logger
	lastRuns map[string]time.Time
}

func NewScheduler(
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		logger:   logger,
		lastRuns: make(map[string]time.Time),
	}
}

// Start blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		s.launchDue(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) launchDue(ctx context.Context) {
	for _, job := range jobs.JobList {
		if time.Since(s.lastRuns[job.Name()]) < job.Interval() {
			continue
		}
		s.lastRuns[job.Name()] = time.Now()

		run := common.NewRun(job.Name())

		logger := s.logger.With(
			zap.String("job", job.Name()),
			zap.String("run", run.ID.String()),
		)

		run.WithContext(ctx)
		run.WithLogger(logger)

		err := job.Run(run)
		if err != nil {
			logger.Error("run execution failed",
				zap.Error(err),
			)
		}
	}
}
