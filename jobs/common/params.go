package common

import (
	"time"

	"github.com/go-redis/redis"
	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/aggregator"
	"gitlab.com/socialfeed/worker/tokenex"
)

type StartParameters struct {
	Logger     *zap.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	Aggregator *aggregator.Aggregator
	Tokens     *tokenex.Client

	DefaultCacheLifetime time.Duration
	RefreshLeadTime      time.Duration
}

type StopParameters struct {
	Logger     *zap.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	Aggregator *aggregator.Aggregator
	Tokens     *tokenex.Client
}
