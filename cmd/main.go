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

	"github.com/brdc/darts-league/brackets"
	"github.com/brdc/darts-league/cache"
	"github.com/brdc/darts-league/config"
	"github.com/brdc/darts-league/db"
	"github.com/brdc/darts-league/handlers"
	"github.com/brdc/darts-league/metrics"
	"github.com/brdc/darts-league/middleware"
	"github.com/brdc/darts-league/repositories"
	api "github.com/brdc/darts-league/routes"
	"github.com/brdc/darts-league/services"
	"github.com/brdc/darts-league/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const limiterSweepInterval = 5 * time.Minute

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreDriver))

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.RunMigrations {
		if err := db.Migrate(rootCtx, dbConn); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	healthChecks := map[string]handlers.HealthCheck{"postgres": dbConn.PingContext}

	// Хранилище сеток
	var bracketRepo repositories.BracketRepository
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		mongoClient, err := db.ConnectMongo(rootCtx, cfg.MongoURI, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to mongo", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect mongo", slog.Any("error", err))
			}
		}()
		bracketRepo = repositories.NewMongoBracketRepository(mongoClient.Database(cfg.MongoDatabase))
		healthChecks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	case config.StoreDriverMemory:
		bracketRepo = repositories.NewMemoryBracketRepository()
		logger.Warn("brackets are kept in memory and lost on restart")
	default:
		bracketRepo = repositories.NewPostgresBracketRepository(dbConn)
	}
	logger.Info("bracket store initialized", slog.String("driver", cfg.StoreDriver))

	bracketCache := cache.NewNoopBracketCache()
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		bracketCache = cache.NewRedisBracketCache(redisClient, cfg.BracketCacheTTL)
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		logger.Info("bracket cache enabled", slog.Duration("ttl", cfg.BracketCacheTTL))
	}

	// Архив завершенных сеток (Cloudflare R2)
	archiver := storage.NewNoopArchiver()
	if cfg.R2Enabled() {
		r2Store, err := storage.NewCloudflareR2Store(rootCtx, storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewBracketArchiver(r2Store)
		logger.Info("Cloudflare R2 bracket archive initialized")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run(rootCtx)
	logger.Info("WebSocket Hub started")

	appMetrics := metrics.NewDefault()

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entrantRepo := repositories.NewPostgresEntrantRepository(dbConn)
	resultRepo := repositories.NewPostgresMatchResultRepository(dbConn)
	logger.Info("Repositories initialized")

	bracketService := services.NewBracketService(
		bracketRepo,
		tournamentRepo,
		entrantRepo,
		resultRepo,
		bracketCache,
		archiver,
		wsHub,
		appMetrics,
		logger,
	)
	logger.Info("Services initialized")

	resultLimiter := middleware.NewRateLimiter(cfg.ResultRateLimitPerMinute)
	go resultLimiter.Run(rootCtx, limiterSweepInterval)

	// Инициализация обработчиков HTTP
	bracketHandler := handlers.NewBracketHandler(bracketService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, bracketService, cfg.CORSAllowedOrigins)
	healthHandler := handlers.NewHealthHandler(healthChecks)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Config{
			JWTSecret:      cfg.JWTSecretKey,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ResultLimiter:  resultLimiter,
		},
		bracketHandler,
		webSocketHandler,
		healthHandler,
		appMetrics.Handler(),
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			cancelRoot()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		// Hijacked websocket connections are not tracked by Shutdown; the hub
		// closes them when the root context ends.
		cancelRoot()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
