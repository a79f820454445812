package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"claimcheck/internal/config"
	"claimcheck/internal/handlers"
	"claimcheck/internal/logger"
	"claimcheck/internal/queue"
	"claimcheck/internal/services"
	"claimcheck/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	sessionMaxIdle   = time.Hour
	sessionPruneTick = 5 * time.Minute
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(),
			}).Fatal("Application panicked")
		}
	}()

	logger.Log.Info("Starting claimcheck server")

	logger.Log.Info("Loading configuration")
	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.Log.WithField("log_level", cfg.LogLevel).Info("Configuration loaded successfully")

	components, err := services.BuildComponents(cfg)
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation":      "build_components",
			"cache_database": maskDatabaseURL(cfg.CacheDatabaseURL),
		})
		logger.Log.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close evidence cache")
		}
	}()

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	opts := []services.Option{
		services.WithMaxInputChars(cfg.MaxInputChars),
		services.WithBaseContext(runCtx),
	}
	if cfg.KafkaEnabled() {
		logger.Log.WithFields(map[string]interface{}{
			"brokers":        cfg.KafkaBrokers,
			"runs_topic":     cfg.KafkaTopicRuns,
			"progress_topic": cfg.KafkaTopicProgress,
		}).Info("Initializing Kafka service")
		kafkaService := queue.NewService(queue.Config{
			Brokers:       cfg.KafkaBrokers,
			RunsTopic:     cfg.KafkaTopicRuns,
			ProgressTopic: cfg.KafkaTopicProgress,
			GroupID:       cfg.KafkaGroupID,
		})
		defer func() {
			logger.Log.Info("Closing Kafka service")
			if err := kafkaService.Close(); err != nil {
				logger.LogErrorWithStack(err, map[string]interface{}{
					"operation": "kafka_close",
				})
			}
		}()
		opts = append(opts,
			services.WithProgressObserver(queue.NewProgressObserver(kafkaService)),
			services.WithRunSubmitter(kafkaService),
		)
	} else {
		logger.Log.Info("Kafka not configured, queued runs disabled")
	}

	registry := session.NewRegistry()
	service := services.NewVerificationService(components.Orchestrator, components.Source, components.Verifier, registry, opts...)
	handler := handlers.NewVerificationHandler(service)

	if cfg.LogLevel == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(cfg.CORSOrigins, handler)

	// WriteTimeout stays zero so event streams are not cut off
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pruneSessions(ctx, service)

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"port":       cfg.ServerPort,
			"health_url": "http://localhost:" + cfg.ServerPort + "/health",
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "server_listen",
				"port":      cfg.ServerPort,
			})
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Log.Info("Shutdown signal received, starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	cancelRuns()
	service.Wait()

	logger.Log.Info("Server gracefully stopped")
}

func pruneSessions(ctx context.Context, service *services.VerificationService) {
	ticker := time.NewTicker(sessionPruneTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			service.PruneSessions(sessionMaxIdle)
		}
	}
}

// maskDatabaseURL masks sensitive information in database URL for logging
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	if len(dbURL) > 20 {
		return dbURL[:10] + "***masked***" + dbURL[len(dbURL)-10:]
	}
	return "***masked***"
}
