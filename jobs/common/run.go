package common

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Run struct {
	Job    string
	ID     uuid.UUID
	Launch time.Time

	ctx    context.Context
	logger *zap.Logger
}

func NewRun(job string) *Run {
	return &Run{
		Job:    job,
		ID:     uuid.New(),
		Launch: time.Now(),
	}
}
