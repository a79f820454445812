package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"claimcheck/internal/config"
	"claimcheck/internal/logger"
	"claimcheck/internal/queue"
	"claimcheck/internal/services"
	"claimcheck/internal/session"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":       r,
				"stack_trace": logger.GetStackTrace(),
			}).Fatal("Worker panicked")
		}
	}()

	logger.Log.Info("Starting claimcheck worker")

	cfg, err := config.Load()
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "config_load",
		})
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)

	if !cfg.KafkaEnabled() {
		logger.Log.Fatal("KAFKA_BROKERS is required for the worker")
	}

	components, err := services.BuildComponents(cfg)
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "build_components",
		})
		logger.Log.WithError(err).Fatal("Failed to initialize pipeline")
	}
	defer components.Close()

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

	service := services.NewVerificationService(
		components.Orchestrator,
		components.Source,
		components.Verifier,
		session.NewRegistry(),
		services.WithMaxInputChars(cfg.MaxInputChars),
		services.WithProgressObserver(queue.NewProgressObserver(kafkaService)),
	)

	reader := kafkaService.NewRunReader()
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka reader")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.WithFields(map[string]interface{}{
		"brokers":  cfg.KafkaBrokers,
		"topic":    cfg.KafkaTopicRuns,
		"group_id": cfg.KafkaGroupID,
	}).Info("Worker consuming run requests")

	if err := queue.Consume(ctx, reader, service.ProcessRunRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"operation": "consume_run_requests",
		})
		logger.Log.WithError(err).Error("Worker stopped with error")
		return
	}

	logger.Log.Info("Worker stopped")
}
