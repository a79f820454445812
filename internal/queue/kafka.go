package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Config holds Kafka connection settings
type Config struct {
	Brokers       []string
	RunsTopic     string
	ProgressTopic string
	GroupID       string
}

// RunRequest asks a worker to verify content for a session
type RunRequest struct {
	SessionID     string    `json:"session_id"`
	Content       string    `json:"content"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageWriter is the producing side of a topic
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Service publishes run requests and progress snapshots
type Service struct {
	cfg      Config
	runs     MessageWriter
	progress MessageWriter
	logger   *logrus.Logger
}

// NewService creates Kafka writers for the run and progress topics
func NewService(cfg Config) *Service {
	log := logger.Log
	return &Service{
		cfg: cfg,
		runs: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.RunsTopic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		progress: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.ProgressTopic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.WithFields(map[string]interface{}{
						"topic":    cfg.ProgressTopic,
						"messages": len(messages),
					}).WithError(err).Warn("Failed to deliver progress snapshots")
				}
			},
		},
		logger: log,
	}
}

// newServiceWithWriters is used by tests
func newServiceWithWriters(cfg Config, runs, progress MessageWriter) *Service {
	return &Service{cfg: cfg, runs: runs, progress: progress, logger: logger.Log}
}

// PublishRunRequest queues a run request keyed by session
func (s *Service) PublishRunRequest(ctx context.Context, req RunRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal run request: %w", err)
	}

	if err := s.runs.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "correlation_id", Value: []byte(req.CorrelationID)},
		},
	}); err != nil {
		return fmt.Errorf("failed to publish run request: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"correlation_id": req.CorrelationID,
		"session_id":     req.SessionID,
		"topic":          s.cfg.RunsTopic,
	}).Info("Run request published")
	return nil
}

// PublishProgress sends a run snapshot keyed by session
func (s *Service) PublishProgress(ctx context.Context, state models.RunState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	key := state.SessionID
	if key == "" {
		key = state.RunID
	}
	if err := s.progress.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}

// NewRunReader creates a consumer-group reader for run requests
func (s *Service) NewRunReader() *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  s.cfg.Brokers,
		Topic:    s.cfg.RunsTopic,
		GroupID:  s.cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
}

// Close flushes and closes both writers
func (s *Service) Close() error {
	runsErr := s.runs.Close()
	progressErr := s.progress.Close()
	if runsErr != nil {
		return runsErr
	}
	return progressErr
}
