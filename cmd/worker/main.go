package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/go-redis/redis"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/aggregator"
	"gitlab.com/socialfeed/worker/api"
	"gitlab.com/socialfeed/worker/feedcache"
	"gitlab.com/socialfeed/worker/jobs"
	"gitlab.com/socialfeed/worker/jobs/common"
	"gitlab.com/socialfeed/worker/jobs/feedrefresh"
	"gitlab.com/socialfeed/worker/metrics"
	"gitlab.com/socialfeed/worker/pkg/logging"
	"gitlab.com/socialfeed/worker/pkg/scheduler"
	"gitlab.com/socialfeed/worker/providers"
	"gitlab.com/socialfeed/worker/store"
	"gitlab.com/socialfeed/worker/tokenex"
)

const (
	// ServiceName is the name of the service
	ServiceName = "worker"
)

func main() {
	// init config
	var config config
	err := envconfig.Process("", &config)
	if err != nil {
		panic(errors.Wrap(err, "unable to load configuration"))
	}

	// init logger
	logger, err := logging.NewLogger(config.Environment, ServiceName)
	if err != nil {
		panic(errors.Wrap(err, "unable to initialise logger"))
	}
	defer logger.Sync() // nolint: errcheck

	// init raven
	if config.RavenDSN != "" {
		err = raven.SetDSN(config.RavenDSN)
		if err != nil {
			logger.Error("unable to initialise errortracking",
				zap.Error(err),
			)
		}
	}

	// init metrics
	metrics.Init()

	// init redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
	})
	_, err = redisClient.Ping().Result()
	if err != nil {
		logger.Fatal("unable to connect to Redis",
			zap.Error(err),
		)
	}

	// init GORM
	gormDB, err := gorm.Open("postgres", config.DBDSN)
	if err != nil {
		logger.Fatal("unable to initialise GORM session",
			zap.Error(err),
		)
	}
	defer gormDB.Close()

	err = gormDB.AutoMigrate(store.Provider{}).Error
	if err != nil {
		logger.Fatal("unable to migrate provider table",
			zap.Error(err),
		)
	}

	httpClient := &http.Client{
		Timeout: config.UpstreamTimeout,
	}

	// init token exchange
	tokens := tokenex.New(
		httpClient,
		config.GraphAPIBaseURL,
		store.NewWriter(gormDB),
		logger.With(zap.String("feature", "tokenex")),
	)

	providerDeps := providers.Dependencies{
		Logger:           logger.With(zap.String("feature", "providers")),
		HTTPClient:       httpClient,
		DB:               gormDB,
		Tokens:           tokens,
		GraphBaseURL:     config.GraphAPIBaseURL,
		TwitterBaseURL:   config.TwitterAPIBaseURL,
		InstagramBaseURL: config.InstagramAPIBaseURL,
	}

	// init aggregator
	agg := aggregator.New(
		logger.With(zap.String("feature", "aggregator")),
		providerDeps,
		store.NewReader(gormDB),
		feedcache.New(redisClient, config.CacheLifetime),
		feedrefresh.NewPlanner(gormDB),
		store.NewWriter(gormDB),
		config.CacheLifetime,
		config.RefreshLeadTime,
	)

	// init jobs
	jobs.StartJobs(common.StartParameters{
		Logger:               logger.With(zap.String("feature", "jobs")),
		DB:                   gormDB,
		Redis:                redisClient,
		Aggregator:           agg,
		Tokens:               tokens,
		DefaultCacheLifetime: config.CacheLifetime,
		RefreshLeadTime:      config.RefreshLeadTime,
	})

	// init scheduler
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	sched := scheduler.NewScheduler(
		logger.With(zap.String("feature", "scheduler")),
	)
	go sched.Start(schedulerCtx)

	// init http server
	httpRouter := api.New(api.Params{
		Logger:       logger.With(zap.String("feature", "api")),
		Aggregator:   agg,
		Finder:       store.NewReader(gormDB),
		ProviderDeps: providerDeps,
		PendingJobs: func() (int, error) {
			return feedrefresh.PendingCount(gormDB)
		},
		AdminToken: config.AdminToken,
	})
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: httpRouter,
	}
	go func() {
		err := httpServer.ListenAndServe()
		if err != http.ErrServerClosed {
			logger.Fatal("http server error",
				zap.Error(err),
				zap.String("feature", "http-server"),
			)
		}
	}()

	logger.Info("service is running",
		zap.Int("port", config.Port),
	)

	// wait for CTRL+C to stop the service
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-quitChannel

	// shutdown features
	schedulerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	jobs.StopJobs(common.StopParameters{
		Logger:     logger.With(zap.String("feature", "jobs")),
		DB:         gormDB,
		Redis:      redisClient,
		Aggregator: agg,
		Tokens:     tokens,
	})

	err = httpServer.Shutdown(ctx)
	if err != nil {
		logger.Error("unable to shutdown HTTP Server",
			zap.Error(err),
		)
	}
}
