package feedrefresh

import (
	"time"

	lock "github.com/bsm/redis-lock"
)

const lockKey = "socialfeed:worker:feed-refresh:run-lock"

func (j *Job) getRunLock() *lock.Locker {
	return lock.New(
		j.redis,
		lockKey,
		&lock.Options{
			LockTimeout: 5 * time.Minute,
			RetryCount:  0, // do not retry
		},
	)
}
