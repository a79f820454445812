package agents

import (
	"context"
	"strings"
	"time"

	"claimcheck/internal/logger"

	"github.com/sirupsen/logrus"
)

// BaseAgent provides common functionality for the oracle agents
type BaseAgent struct {
	name   string
	logger *logrus.Logger
}

// NewBaseAgent creates a new base agent
func NewBaseAgent(name string) *BaseAgent {
	return &BaseAgent{
		name:   name,
		logger: logger.Log,
	}
}

// Name returns the agent's name
func (b *BaseAgent) Name() string {
	return b.name
}

// SetLogger replaces the agent's logger
func (b *BaseAgent) SetLogger(log *logrus.Logger) {
	b.logger = log
}

// LogStart logs the beginning of agent processing
func (b *BaseAgent) LogStart(ctx context.Context, contentLength int) {
	b.logger.WithFields(map[string]interface{}{
		"agent":          b.name,
		"correlation_id": logger.CorrelationID(ctx),
		"content_length": contentLength,
	}).Info("Agent processing started")
}

// LogSuccess logs successful completion with agent-specific result fields
func (b *BaseAgent) LogSuccess(ctx context.Context, resultFields map[string]interface{}, duration time.Duration) {
	fields := map[string]interface{}{
		"agent":          b.name,
		"correlation_id": logger.CorrelationID(ctx),
		"duration_ms":    duration.Milliseconds(),
	}
	for key, value := range resultFields {
		fields[key] = value
	}
	b.logger.WithFields(fields).Info("Agent processing completed successfully")
}

// LogError logs agent processing errors
func (b *BaseAgent) LogError(ctx context.Context, err error, duration time.Duration) {
	b.logger.WithFields(map[string]interface{}{
		"agent":          b.name,
		"correlation_id": logger.CorrelationID(ctx),
		"duration_ms":    duration.Milliseconds(),
		"error_kind":     string(KindOf(err)),
		"error_reason":   ReasonOf(err),
	}).WithError(err).Error("Agent processing failed")
}

// LogAPICall logs details about external API calls
func (b *BaseAgent) LogAPICall(ctx context.Context, service string, promptLength int) {
	b.logger.WithFields(map[string]interface{}{
		"agent":          b.name,
		"correlation_id": logger.CorrelationID(ctx),
		"service":        service,
		"prompt_length":  promptLength,
	}).Debug("Making API call")
}

// TruncateContent truncates content to a maximum length for API calls
func (b *BaseAgent) TruncateContent(content string, maxLength int) string {
	if len(content) <= maxLength {
		return content
	}

	truncated := content[:maxLength]

	// Try to end at a word boundary
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLength-100 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "\n[...content truncated...]"
}

// TruncateForLog truncates text for logging to avoid overly long log messages
func (b *BaseAgent) TruncateForLog(text string, maxLength int) string {
	return logger.Truncate(text, maxLength)
}
