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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/markovtsev/ladder-system/brackets"
	"github.com/markovtsev/ladder-system/config"
	"github.com/markovtsev/ladder-system/db"
	"github.com/markovtsev/ladder-system/handlers"
	"github.com/markovtsev/ladder-system/repositories"
	api "github.com/markovtsev/ladder-system/routes"
	"github.com/markovtsev/ladder-system/services"
	"github.com/markovtsev/ladder-system/storage"
)

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

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
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
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	ladderRepo := repositories.NewPostgresLadderRepository()
	historyRepo := repositories.NewPostgresLadderHistoryRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)
	wildcardRepo := repositories.NewPostgresWildcardRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	logger.Info("repositories initialized")

	var notifier services.Notifier
	if cfg.SMTPHost != "" {
		sender := services.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		notifier = services.NewEmailNotifier(userRepo, sender, logger)
	} else {
		logger.Warn("SMTP_HOST not set, email notifications disabled")
		notifier = services.NopNotifier{}
	}

	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, cfg.JWTTokenTTL)
	userService := services.NewUserService(userRepo, uploader, logger)
	seasonService := services.NewSeasonService(txRunner, seasonRepo, userRepo)
	ladderService := services.NewLadderService(txRunner, ladderRepo, historyRepo, logger)
	challengeService := services.NewChallengeService(
		txRunner, challengeRepo, ladderRepo, wildcardRepo, seasonRepo, matchRepo, notifier, logger)
	playoffService := services.NewPlayoffService(
		txRunner, bracketRepo, matchRepo, ladderRepo, seasonRepo, userRepo, notifier, wsHub, logger)
	matchService := services.NewMatchService(
		txRunner, matchRepo, challengeRepo, ladderService, playoffService, notifier, logger)
	disputeService := services.NewDisputeService(
		txRunner, matchRepo, challengeRepo, userRepo, ladderService, notifier, logger)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	seasonHandler := handlers.NewSeasonHandler(seasonService)
	ladderHandler := handlers.NewLadderHandler(ladderService, wsHub)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	matchHandler := handlers.NewMatchHandler(matchService, disputeService)
	playoffHandler := handlers.NewPlayoffHandler(playoffService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		seasonHandler,
		ladderHandler,
		challengeHandler,
		matchHandler,
		playoffHandler,
		webSocketHandler,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

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
