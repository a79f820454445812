package handlers

import (
	"errors"
	"net/http"

	"claimcheck/internal/agents"
	"claimcheck/internal/middleware"
	"claimcheck/internal/services"
	"claimcheck/internal/session"
	"claimcheck/internal/utils"

	"github.com/gin-gonic/gin"
)

// getCorrelationID returns the ID assigned by RequestIDMiddleware, or one from the headers
func getCorrelationID(c *gin.Context) string {
	if id := c.GetString(middleware.CorrelationIDKey); id != "" {
		return id
	}
	return utils.GetCorrelationID(c.Request)
}

// writeErrorWithCorrelation writes a standardized error response with correlation ID
func writeErrorWithCorrelation(c *gin.Context, status int, code, message, correlationID string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":           code,
			"message":        message,
			"correlation_id": correlationID,
		},
	})
}

// classifyError maps service and oracle errors to an HTTP status and error code
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, services.ErrClaimNotFound):
		return http.StatusNotFound, "CLAIM_NOT_FOUND"
	case errors.Is(err, services.ErrClaimNotFixable):
		return http.StatusConflict, "CLAIM_NOT_FIXABLE"
	case errors.Is(err, services.ErrQueueDisabled):
		return http.StatusServiceUnavailable, "QUEUE_DISABLED"
	}

	var claimErr *agents.ClaimError
	if !errors.As(err, &claimErr) {
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
	switch claimErr.Kind {
	case agents.KindExtraction:
		return http.StatusBadGateway, "EXTRACTION_FAILURE"
	case agents.KindNoEvidence:
		return http.StatusNotFound, "NO_EVIDENCE_FOUND"
	case agents.KindVerification:
		return http.StatusBadGateway, "VERIFICATION_FAILURE"
	case agents.KindTransport:
		return http.StatusBadGateway, "TRANSPORT_FAILURE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// sessionParam reads and validates the :session_id path parameter
func sessionParam(c *gin.Context, correlationID string) (string, bool) {
	sessionID := c.Param("session_id")
	if err := utils.ValidateSessionID(sessionID); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_SESSION_ID", err.Error(), correlationID)
		return "", false
	}
	return sessionID, true
}
