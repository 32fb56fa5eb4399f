package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"autocare/internal/advisor"
	"autocare/internal/amqp"
	"autocare/internal/chat"
	"autocare/internal/config"
	apphttp "autocare/internal/http"
	applog "autocare/internal/log"
	"autocare/internal/services"
	"autocare/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting autocare server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := newRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewExpenseService(repo, amqpClient)
	defer svc.Close()

	var analyzer *advisor.Analyzer
	var chatCtl *chat.Controller
	if cfg.GeminiAPIKey != "" {
		backend, err := advisor.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", applog.FieldError, err, applog.FieldModel, cfg.GeminiModel)
			os.Exit(1)
		}
		analyzer = advisor.NewAnalyzer(backend)
		chatCtl = chat.NewController(backend, svc)
		logger.Info("AI advisory enabled", applog.FieldModel, cfg.GeminiModel)
	} else {
		logger.Info("AI advisory disabled - no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, analyzer, chatCtl, cfg.AITimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}

func newRepository(cfg *config.Config, logger *applog.Logger) (storage.Repository, error) {
	switch cfg.DataBackend {
	case "sqlite":
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
		return storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	default:
		logger.Info("Initialized file backend", "dir", cfg.DataDir)
		return storage.NewFileRepository(cfg.DataDir)
	}
}
