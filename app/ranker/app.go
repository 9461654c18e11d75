// Package ranker wires the ranking pipeline's dependencies together and
// exposes the Initialize/Start/Stop lifecycle the indexer app follows.
package ranker

import (
	"context"

	"go.uber.org/zap"

	"github.com/canopy-network/validator-ranker/pkg/accountage"
	"github.com/canopy-network/validator-ranker/pkg/chainrpc"
	"github.com/canopy-network/validator-ranker/pkg/config"
	"github.com/canopy-network/validator-ranker/pkg/db/clickhouse"
	"github.com/canopy-network/validator-ranker/pkg/logging"
	"github.com/canopy-network/validator-ranker/pkg/pipeline"
	"github.com/canopy-network/validator-ranker/pkg/rankingstore"
	"github.com/canopy-network/validator-ranker/pkg/redis"
	"github.com/canopy-network/validator-ranker/pkg/scheduler"
)

// App holds every long-lived collaborator and the scheduler driving the pipeline.
type App struct {
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger

	chainClient chainrpc.Client
	chDB        *clickhouse.Client
	redisClient *redis.Client
}

// Start runs the scheduler and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) {
	a.Scheduler.Start(ctx)
	<-ctx.Done()
	a.Stop()
}

// Stop blocks until the scheduling loop exits, then closes every connection.
func (a *App) Stop() {
	a.Scheduler.Stop()

	if err := a.chainClient.Close(); err != nil {
		a.Logger.Warn("error closing chain rpc client", zap.Error(err))
	}
	if err := a.chDB.Close(); err != nil {
		a.Logger.Warn("error closing clickhouse connection", zap.Error(err))
	}
	if err := a.redisClient.Close(); err != nil {
		a.Logger.Warn("error closing redis connection", zap.Error(err))
	}

	a.Logger.Info("ranker stopped")
}

// Initialize loads configuration, dials every external collaborator, and
// assembles the pipeline and scheduler. Any configuration or connection
// failure at this stage is fatal.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	chDB, err := clickhouse.New(ctx, logger, cfg.ClickHouseDatabase)
	if err != nil {
		logger.Fatal("unable to connect to clickhouse", zap.Error(err))
	}

	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("unable to connect to redis", zap.Error(err))
	}
	// NewClient already pinged Redis, and a failure there is fatal. This
	// second liveness check is only logged.
	if err := redisClient.Health(ctx); err != nil {
		logger.Warn("redis liveness check failed at startup", zap.Error(err))
	}

	store, err := rankingstore.New(ctx, &chDB, cfg.ClickHouseDatabase, redisClient, logger)
	if err != nil {
		logger.Fatal("unable to initialize ranking store", zap.Error(err))
	}

	chainClient, err := chainrpc.NewWSFactory()(ctx, cfg.WSProviderURL, chainrpc.Opts{Logger: logger})
	if err != nil {
		logger.Fatal("unable to connect to chain rpc", zap.Error(err))
	}

	ages := accountage.NewResolver(&chDB, logger)
	thousandValidators := chainrpc.NewThousandValidatorsFetcher(cfg.ThousandValidatorsURL, redisClient, cfg.ThousandValidatorsCacheTTL, logger)

	p := pipeline.New(chainClient, ages, thousandValidators, store, cfg, logger)

	sched := scheduler.New(cfg.StartDelay, cfg.PollingTime, p.Run, logger)

	return &App{
		Scheduler:   sched,
		Logger:      logger,
		chainClient: chainClient,
		chDB:        &chDB,
		redisClient: redisClient,
	}
}
