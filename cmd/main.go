package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aitbek01/arena-gauntlet/brackets"
	"github.com/Aitbek01/arena-gauntlet/config"
	"github.com/Aitbek01/arena-gauntlet/db"
	"github.com/Aitbek01/arena-gauntlet/handlers"
	"github.com/Aitbek01/arena-gauntlet/metrics"
	"github.com/Aitbek01/arena-gauntlet/models"
	"github.com/Aitbek01/arena-gauntlet/oracle"
	"github.com/Aitbek01/arena-gauntlet/queue"
	"github.com/Aitbek01/arena-gauntlet/repositories"
	api "github.com/Aitbek01/arena-gauntlet/routes"
	"github.com/Aitbek01/arena-gauntlet/services"
	"github.com/Aitbek01/arena-gauntlet/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const pipelineTickInterval = 15 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var archiver services.LogArchiver = storage.NoopArchiver{}
	if cfg.R2AccountID != "" {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewRunLogArchiver(uploader)
		logger.Info("combat log archiver initialized")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	m := metrics.New()

	competitorRepo := repositories.NewPostgresCompetitorRepository(dbConn)
	runRepo := repositories.NewPostgresRunRepository(dbConn)
	pendingRepo := repositories.NewPostgresPendingRunRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	rewardRepo := repositories.NewPostgresRewardPolicyRepository(dbConn)
	ticketRepo := repositories.NewPostgresTicketRepository(dbConn)
	duelRepo := repositories.NewPostgresDuelRepository(dbConn)
	schedulerStateRepo := repositories.NewPostgresSchedulerStateRepository(dbConn)
	logger.Info("repositories initialized")

	queueStore := queue.NewStore()
	beacon := oracle.NewBeacon(cfg.BeaconGenesis, cfg.BeaconPeriod, cfg.BeaconWindowRounds, cfg.BeaconSecret)

	recovery := services.NewRecoveryManager(
		queueStore, runRepo, pendingRepo, duelRepo, beacon, wsHub, m, cfg.DuelTimeout, logger)
	queueService := services.NewQueueService(queueStore, competitorRepo, competitorRepo, wsHub, logger)
	resolver := services.NewResolver(
		competitorRepo, competitorRepo, services.DefaultStandIns(cfg.StandInPoolSize), wsHub, logger)
	distributor := services.NewDistributor(
		ratingRepo, rewardRepo, ticketRepo, competitorRepo,
		services.DistributorConfig{
			Tables:         cfg.RatingTables,
			ChampionPoints: cfg.ChampionPoints,
			RunnerUpPoints: cfg.RunnerUpPoints,
		},
		wsHub, m, logger)
	combat := brackets.NewPowerWeightedOracle()
	simulator := brackets.NewSimulator(combat, competitorRepo)

	deps := services.PipelineDeps{
		DB:          dbConn,
		Queue:       queueStore,
		Oracle:      beacon,
		Resolver:    resolver,
		Simulator:   simulator,
		Distributor: distributor,
		Runs:        runRepo,
		Pendings:    pendingRepo,
		Recovery:    recovery,
		Events:      wsHub,
		Archiver:    archiver,
		Metrics:     m,
		Logger:      logger,
	}
	scheduler := services.NewScheduler(deps, services.PipelineConfig{
		BracketSize:        cfg.BracketSize,
		SelectionOffset:    cfg.SelectionOffsetRound,
		ExecutionOffset:    cfg.ExecutionOffsetRound,
		CarryOverFinalists: cfg.CarryOverFinalists,
		Lethal:             true,
	}, schedulerStateRepo)
	gauntlet := services.NewGauntlet(deps, services.PipelineConfig{
		BracketSize:     cfg.GauntletBracketSize,
		SelectionOffset: cfg.SelectionOffsetRound,
		ExecutionOffset: cfg.ExecutionOffsetRound,
		Lethal:          cfg.GauntletLethal,
	})
	duelService := services.NewDuelService(
		duelRepo, competitorRepo, beacon, combat, recovery, wsHub, m, cfg.DuelOffsetRounds, logger)
	logger.Info("services initialized")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runPipelineTicker(rootCtx, logger, scheduler, gauntlet, recovery)

	queueHandler := handlers.NewQueueHandler(queueService)
	runHandler := handlers.NewRunHandler(runRepo)
	schedulerHandler := handlers.NewSchedulerHandler(scheduler)
	gauntletHandler := handlers.NewGauntletHandler(gauntlet)
	ratingHandler := handlers.NewRatingHandler(distributor)
	rewardHandler := handlers.NewRewardHandler(distributor)
	duelHandler := handlers.NewDuelHandler(duelService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		queueHandler,
		runHandler,
		schedulerHandler,
		gauntletHandler,
		ratingHandler,
		rewardHandler,
		duelHandler,
		webSocketHandler,
		m.Handler(),
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}

// runPipelineTicker advances both pipelines and sweeps stale duels on a
// fixed cadence. Expected pipeline states (no pending run, checkpoint not
// reached yet, queue below threshold) are logged at debug level only.
func runPipelineTicker(
	ctx context.Context,
	logger *slog.Logger,
	scheduler *services.Scheduler,
	gauntlet *services.Gauntlet,
	recovery *services.RecoveryManager,
) {
	ticker := time.NewTicker(pipelineTickInterval)
	defer ticker.Stop()
	logger.Info("pipeline ticker started", slog.Duration("interval", pipelineTickInterval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("pipeline ticker stopped")
			return
		case <-ticker.C:
			tickScheduler(ctx, logger, scheduler)
			tickGauntlet(ctx, logger, gauntlet)
			if _, err := recovery.SweepDuels(ctx); err != nil {
				logger.Error("duel sweep failed", slog.Any("error", err))
			}
		}
	}
}

func tickScheduler(ctx context.Context, logger *slog.Logger, scheduler *services.Scheduler) {
	if _, err := scheduler.Commit(ctx); err != nil && !expectedPipelineError(err) {
		logger.Error("tournament commit failed", slog.Any("error", err))
	}
	if _, err := scheduler.Select(ctx); err != nil && !expectedPipelineError(err) {
		logger.Error("tournament selection failed", slog.Any("error", err))
	}
	if _, err := scheduler.Execute(ctx); err != nil && !expectedPipelineError(err) {
		logger.Error("tournament execution failed", slog.Any("error", err))
	}
}

func tickGauntlet(ctx context.Context, logger *slog.Logger, gauntlet *services.Gauntlet) {
	if _, err := gauntlet.Trigger(ctx); err != nil && !expectedPipelineError(err) {
		logger.Error("gauntlet trigger failed", slog.Any("error", err))
	}

	pending, err := gauntlet.Pending(ctx)
	if err != nil {
		logger.Error("list pending gauntlet runs failed", slog.Any("error", err))
		return
	}
	for _, p := range pending {
		switch p.Phase {
		case models.PhaseCommitted:
			if _, err := gauntlet.Select(ctx, p.RunID); err != nil && !expectedPipelineError(err) {
				logger.Error("gauntlet selection failed",
					slog.Int64("run_id", p.RunID), slog.Any("error", err))
			}
		case models.PhaseSelected, models.PhaseReady:
			if _, err := gauntlet.Execute(ctx, p.RunID); err != nil && !expectedPipelineError(err) {
				logger.Error("gauntlet execution failed",
					slog.Int64("run_id", p.RunID), slog.Any("error", err))
			}
		}
	}
}

func expectedPipelineError(err error) bool {
	var notReached *services.CheckpointNotReachedError
	return errors.Is(err, services.ErrNoPendingRun) ||
		errors.Is(err, services.ErrRunAlreadyPending) ||
		errors.Is(err, services.ErrDailyWindowUsed) ||
		errors.Is(err, services.ErrQueueBelowThreshold) ||
		errors.Is(err, services.ErrInsufficientQueue) ||
		errors.Is(err, services.ErrWrongPhase) ||
		errors.Is(err, services.ErrRandomnessExpired) ||
		errors.As(err, &notReached)
}
