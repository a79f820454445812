package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"claimcheck/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the consuming side of a topic
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RunHandler processes one run request
type RunHandler func(ctx context.Context, req RunRequest) error

// Consume reads run requests until ctx is done. Every message is committed after
// handling, including ones that fail to decode or whose handler fails or panics.
func Consume(ctx context.Context, reader MessageReader, handle RunHandler) error {
	logger.Log.Info("Worker ready to process run requests")

	for {
		message, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Log.Info("Context cancelled, stopping consumer")
				return ctx.Err()
			}
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "kafka_fetch_message",
			})
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		var req RunRequest
		if err := json.Unmarshal(message.Value, &req); err != nil {
			logger.LogErrorWithStack(err, map[string]interface{}{
				"message_value": logger.Truncate(string(message.Value), 200),
				"operation":     "parse_run_request",
			})
		} else if err := handleSafely(ctx, handle, req); err != nil {
			logger.LogErrorWithStackAndCorrelation(err, req.CorrelationID, map[string]interface{}{
				"session_id": req.SessionID,
				"operation":  "process_run_request",
			})
		}

		if err := reader.CommitMessages(ctx, message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.LogErrorWithStack(err, map[string]interface{}{
				"operation": "kafka_commit_message",
				"offset":    message.Offset,
			})
		}
	}
}

func handleSafely(ctx context.Context, handle RunHandler, req RunRequest) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":          r,
				"stack_trace":    logger.GetStackTrace(),
				"correlation_id": req.CorrelationID,
			}).Error("Worker panic in run processing")
			retErr = fmt.Errorf("worker panicked: %v", r)
		}
	}()
	return handle(ctx, req)
}
