package common

import (
	"context"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (r *Run) Except(err error) {
	if err == nil {
		return
	}

	if ignoreError(err) {
		return
	}

	r.Logger().Error("error occurred while executing run", zap.Error(err))

	if raven.DefaultClient != nil {
		raven.CaptureError(
			err,
			map[string]string{
				"job":    r.Job,
				"run":    r.ID.String(),
				"launch": r.Launch.String(),
			},
		)
	}
}

func ignoreError(err error) bool {
	if err == nil {
		return true
	}

	// cancellations during shutdown
	if errors.Is(err, context.Canceled) {
		return true
	}

	return false
}
