package queue

import (
	"context"
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"
	"claimcheck/internal/pipeline"
)

// ProgressObserver forwards run snapshots to the progress topic. Delivery is best effort.
type ProgressObserver struct {
	service *Service
	timeout time.Duration
}

// NewProgressObserver creates an observer publishing through service
func NewProgressObserver(service *Service) *ProgressObserver {
	return &ProgressObserver{service: service, timeout: 5 * time.Second}
}

var _ pipeline.Observer = (*ProgressObserver)(nil)

// Publish sends state, logging failures
func (p *ProgressObserver) Publish(state models.RunState) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.service.PublishProgress(ctx, state); err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"run_id":     state.RunID,
			"session_id": state.SessionID,
			"status":     string(state.Status),
		}).WithError(err).Warn("Failed to publish run progress")
	}
}
