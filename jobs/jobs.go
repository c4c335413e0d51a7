package jobs

import (
	"time"

	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/jobs/common"
	"gitlab.com/socialfeed/worker/jobs/feedrefresh"
	"gitlab.com/socialfeed/worker/jobs/tokenverify"
)

type Job interface {
	Name() string

	Interval() time.Duration

	// TODO: add context for deadline
	Start(common.StartParameters) error

	// TODO: add context for deadline
	Stop(common.StopParameters) error

	Run(run *common.Run) error
}

var JobList = []Job{
	&feedrefresh.Job{},
	&tokenverify.Job{},
}

func StartJobs(params common.StartParameters) {
	var err error
	for _, job := range JobList {
		err = job.Start(params)
		if err != nil {
			params.Logger.Error("failed to start job",
				zap.String("job", job.Name()),
				zap.Error(err),
			)
		}
	}
}

func StopJobs(params common.StopParameters) {
	var err error
	for _, job := range JobList {
		err = job.Stop(params)
		if err != nil {
			params.Logger.Error("failed to stop job",
				zap.String("job", job.Name()),
				zap.Error(err),
			)
		}
	}
}
