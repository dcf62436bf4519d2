package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vives-backoffice/config"
	localCache "vives-backoffice/internal/adapter/cache"
	"vives-backoffice/internal/adapter/storage/cached"
	pgStorage "vives-backoffice/internal/adapter/storage/postgres"
	redisStorage "vives-backoffice/internal/adapter/storage/redis"
	"vives-backoffice/internal/core/ports"
	"vives-backoffice/internal/scheduler"
	"vives-backoffice/internal/service"
	"vives-backoffice/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Dur("scheduler_interval", cfg.Scheduler.Interval).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Starting Vives Back Office")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	mandateRepo := pgStorage.NewMandateRepo(pool)
	movementRepo := pgStorage.NewMovementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize the two-tier entity cache
	memTier := localCache.NewMemory()
	defer memTier.Close()
	redisTier := redisStorage.NewEntityCache(rdb)
	entityCache := localCache.NewTiered(memTier, redisTier, log)

	// Cached stores for read paths
	accountStore := cached.NewAccountStore(accountRepo, entityCache, cfg.Cache.TTL, log)
	mandateStore := cached.NewMandateStore(mandateRepo, entityCache, cfg.Cache.TTL, log)
	movementStore := cached.NewMovementStore(movementRepo, entityCache, cfg.Cache.TTL, log)

	// Business services. The ledger gets the raw account repo: balance reads
	// happen inside its transaction, never through the cache.
	ledger := service.NewAccountLedger(accountRepo, transactor, entityCache, cfg.Cache.TTL, log)
	movementSvc := service.NewMovementService(accountStore, movementStore, ledger, cfg.Movements.RevocationWindow, log)

	// Health checkers
	healthCheckers := []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}
	for _, hc := range healthCheckers {
		if err := hc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", hc.Name()).Msg("dependency unhealthy at startup")
		}
	}

	// Run the mandate scheduler until shutdown
	sched := scheduler.New(mandateStore, movementSvc, cfg.Scheduler.Interval, log)
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Scheduler terminated unexpectedly")
	}

	log.Info().Msg("Shutdown complete")
}
