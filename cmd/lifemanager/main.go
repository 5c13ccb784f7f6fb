package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/finance"
	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/application/timer"
	"github.com/GwydionBr/life-manager-sub000/internal/config"
	httprouter "github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/handlers"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/http/middleware"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/persistence/postgres"
	"github.com/GwydionBr/life-manager-sub000/internal/infrastructure/queue"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	healthHandler := handlers.NewHealthHandler(pool, redisClient)

	accountRepo := postgres.NewAccountRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	entryRepo := postgres.NewWorkTimeRepository(pool)
	snapshotRepo := postgres.NewTimerSnapshotRepository(pool)
	recurringRepo := postgres.NewRecurringCashFlowRepository(pool)
	cashflowRepo := postgres.NewSingleCashFlowRepository(pool)
	tagRepo := postgres.NewTagRepository(pool)

	manager := timer.NewManager(timer.ManagerConfig{
		Capacity:        cfg.Timer.Capacity,
		AutoStopOthers:  cfg.Timer.AutoStopOthers,
		DefaultRounding: cfg.Timer.DefaultRounding,
	}, entryRepo, snapshotRepo, projectRepo, log)
	if err := manager.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("restore timer registry")
	}
	middleware.RegisterRunningTimersGauge(manager.RunningCount)

	syncer := finance.NewTagSyncer(tagRepo)

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqEnq, err := queue.NewAsynqEnqueuer(asynqOpt, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create asynq enqueuer")
		}
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq
		asynqWorker = queue.NewWorker(asynqOpt, recurringRepo, cashflowRepo, syncer, middleware.RecordRecurringInstances, log)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		taskEnqueuer = queue.NewInlineEnqueuer(recurringRepo, cashflowRepo, syncer, middleware.RecordRecurringInstances, log)
	}

	// Materialize due cashflow instances at startup, then on the ticker.
	expandCtx, stopExpand := context.WithCancel(ctx)
	defer stopExpand()
	go runExpansionLoop(expandCtx, taskEnqueuer, time.Duration(cfg.Finance.ExpandIntervalSecs)*time.Second, log)

	// Sweep timers flagged for force-end once a minute.
	go runForceEndSweep(expandCtx, manager)

	hashAPIKey := middleware.SHA256HashAPIKey()
	accountResolver := middleware.NewAccountResolver(accountRepo, hashAPIKey)
	adminHandler := handlers.NewAdminHandler(accountRepo, hashAPIKey, log)

	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.RatePerIP)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	accountLimit, err := middleware.NewAccountRateLimiter(cfg.RateLimit.RatePerAccount)
	if err != nil {
		log.Fatal().Err(err).Msg("create account rate limiter")
	}
	secureMiddleware := middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment))

	router := httprouter.NewRouter(httprouter.RouterConfig{
		HealthHandler:    healthHandler,
		TimersHandler:    handlers.NewTimersHandler(manager, projectRepo, log),
		ProjectsHandler:  handlers.NewProjectsHandler(projectRepo, entryRepo, log),
		FinanceHandler:   handlers.NewFinanceHandler(recurringRepo, cashflowRepo, taskEnqueuer, log),
		AdminHandler:     adminHandler,
		Account:          accountResolver,
		AdminSecret:      cfg.Admin.Secret,
		Log:              log,
		CORS:             middleware.CORS(cfg.Server.CORSAllowedOrigins, nil, nil),
		Secure:           secureMiddleware,
		IPRateLimit:      ipLimit,
		AccountRateLimit: accountLimit,
		Metrics:          true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	stopExpand()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}

func runExpansionLoop(ctx context.Context, enqueuer ports.TaskEnqueuer, interval time.Duration, log zerolog.Logger) {
	if err := enqueuer.EnqueueExpandRecurring(ctx); err != nil {
		log.Warn().Err(err).Msg("startup expansion run failed")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := enqueuer.EnqueueExpandRecurring(ctx); err != nil {
				log.Warn().Err(err).Msg("scheduled expansion run failed")
			}
		}
	}
}

func runForceEndSweep(ctx context.Context, manager *timer.Manager) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.SweepForceEnded(ctx)
		}
	}
}
