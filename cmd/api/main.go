package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/facilityops/facility-system/internal/api"
	"github.com/facilityops/facility-system/internal/api/metrics"
	"github.com/facilityops/facility-system/internal/core/ports"
	"github.com/facilityops/facility-system/internal/core/service"
	mongodb "github.com/facilityops/facility-system/internal/infrastructure/db/mongo"
	redisdb "github.com/facilityops/facility-system/internal/infrastructure/db/redis"
	"github.com/facilityops/facility-system/internal/infrastructure/queue"
	"github.com/facilityops/facility-system/internal/infrastructure/storage"
	"github.com/facilityops/facility-system/internal/pkg/config"
	"github.com/facilityops/facility-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title           Facility Management API
// @version         1.0
// @description     Permit, facility, and tank compliance tracking API.
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	userRepo := mongodb.NewUserRepository(db)
	facilityRepo := mongodb.NewFacilityRepository(db)
	permitRepo := mongodb.NewPermitRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"users":      userRepo.EnsureIndexes,
		"facilities": facilityRepo.EnsureIndexes,
		"permits":    permitRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("index creation failed")
		}
	}

	var docStore ports.DocumentStorage = storage.Noop{}
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("s3 storage setup failed")
		}
		docStore = s3Store
	} else {
		log.Warn().Msg("no document bucket configured; uploads will be discarded")
	}

	// --- Services ---
	refreshStore := redisdb.NewRefreshStore(rdb)
	authService := service.NewAuthService(
		userRepo, refreshStore, cfg.JWTSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
		logger.Component("auth"),
	)
	userService := service.NewUserService(userRepo, logger.Component("users"))
	facilityService := service.NewFacilityService(facilityRepo, logger.Component("facilities"))
	permitService := service.NewPermitService(permitRepo, facilityRepo, docStore, logger.Component("permits"))

	// --- Expiry sweep ---
	expiryService := service.NewExpiryService(permitRepo, logger.Component("expiry"))
	dispatcher := queue.NewDispatcher(cfg.ExpiryWorkers, expiryService, logger.Component("expiry"))
	dispatcher.Start(ctx)
	go runExpirySweep(ctx, cfg.SweepInterval, permitRepo, dispatcher)

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Auth:       authService,
		Users:      userService,
		Facilities: facilityService,
		Permits:    permitService,
		DB:         db,
		Redis:      rdb,
		JWTSecret:  cfg.JWTSecret,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("facility api listening")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// runExpirySweep periodically enqueues every permit for re-evaluation. The
// first sweep runs immediately so statuses are fresh after a restart.
func runExpirySweep(ctx context.Context, interval time.Duration, repo ports.PermitRepository, d *queue.Dispatcher) {
	log := logger.Component("expiry")
	if interval <= 0 {
		interval = time.Hour
	}

	sweep := func() {
		timer := prometheus.NewTimer(metrics.ExpirySweepDuration)
		defer timer.ObserveDuration()

		permits, err := repo.List(ctx, "")
		if err != nil {
			log.Error().Err(err).Msg("expiry sweep list failed")
			return
		}
		checks := make([]ports.ExpiryCheckInput, 0, len(permits))
		for _, p := range permits {
			checks = append(checks, ports.ExpiryCheckInput{PermitID: p.ID})
		}
		d.EnqueueBatch(checks)
		log.Debug().Int("permits", len(checks)).Msg("expiry sweep enqueued")
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
