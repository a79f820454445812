package services

import (
	"errors"

	"claimcheck/internal/models"
	"claimcheck/internal/reconcile"
)

var (
	// ErrInvalidRequest wraps request validation failures
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClaimNotFound is returned when a claim index is not part of the current run
	ErrClaimNotFound = errors.New("claim not found")
	// ErrClaimNotFixable is returned for claims without a refuted verdict
	ErrClaimNotFixable = errors.New("claim has no correction to apply")
	// ErrQueueDisabled is returned when run submission needs Kafka and none is configured
	ErrQueueDisabled = errors.New("run queue is not configured")
)

// ExtractClaimsRequest is the body of POST /api/extractclaims
type ExtractClaimsRequest struct {
	Content string `json:"content" binding:"required" validate:"required"`
}

// ExtractClaimsResponse lists the extracted claims
type ExtractClaimsResponse struct {
	Claims []models.RawClaim `json:"claims"`
}

// SearchRequest is the body of POST /api/search
type SearchRequest struct {
	Claim string `json:"claim" binding:"required" validate:"required"`
}

// SearchResponse lists evidence documents for a claim
type SearchResponse struct {
	Results []models.EvidenceDocument `json:"results"`
}

// VerifyClaimRequest is the body of POST /api/verifyclaims
type VerifyClaimRequest struct {
	Claim        string                    `json:"claim" binding:"required" validate:"required"`
	OriginalText string                    `json:"original_text" binding:"required" validate:"required"`
	Evidence     []models.EvidenceDocument `json:"evidence"`
}

// StartRunRequest is the body of POST /api/runs
type StartRunRequest struct {
	Content   string `json:"content" binding:"required" validate:"required"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// RunResponse acknowledges a started or queued run
type RunResponse struct {
	SessionID string           `json:"session_id"`
	RunID     string           `json:"run_id,omitempty"`
	Status    models.RunStatus `json:"status"`
	Message   string           `json:"message"`
}

// AcceptFixRequest is the body of POST /api/runs/:session_id/fixes
type AcceptFixRequest struct {
	ClaimIndex *int `json:"claim_index" binding:"required" validate:"required,min=0"`
}

// PreviewResponse is the highlighted display buffer of a session
type PreviewResponse struct {
	SessionID string                 `json:"session_id"`
	RunID     string                 `json:"run_id"`
	Status    models.RunStatus       `json:"status"`
	Buffer    string                 `json:"buffer"`
	Segments  []reconcile.Segment    `json:"segments"`
	Selected  *models.ProcessedClaim `json:"selected"`
	Counts    models.RunCounts       `json:"counts"`
}

// FixResponse reports the buffer after a fix was accepted
type FixResponse struct {
	SessionID string                 `json:"session_id"`
	Buffer    string                 `json:"buffer"`
	Changed   bool                   `json:"changed"`
	Selected  *models.ProcessedClaim `json:"selected"`
}
