package handlers

import (
	"io"
	"net/http"

	"claimcheck/internal/logger"
	"claimcheck/internal/services"
	"claimcheck/internal/utils"

	"github.com/gin-gonic/gin"
)

// StartRun begins a verification run. With ?queue=true the run is handed to a worker.
func (h *VerificationHandler) StartRun(c *gin.Context) {
	correlationID := getCorrelationID(c)

	var req services.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), correlationID)
		return
	}
	if req.SessionID != "" {
		if err := utils.ValidateSessionID(req.SessionID); err != nil {
			writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_SESSION_ID", err.Error(), correlationID)
			return
		}
	}

	queued := utils.GetQueryParamBool(c.Request, "queue", false)
	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"session_id":     req.SessionID,
		"content_length": len(req.Content),
		"queued":         queued,
		"client_ip":      utils.GetClientIP(c.Request),
	}).Info("Verification run request received")

	var (
		response *services.RunResponse
		err      error
	)
	if queued {
		response, err = h.service.SubmitRun(c.Request.Context(), &req, correlationID)
	} else {
		response, err = h.service.StartRun(&req, correlationID)
	}
	if err != nil {
		h.fail(c, err, correlationID, "start_run", map[string]interface{}{
			"session_id": req.SessionID,
		})
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// GetRun returns the latest snapshot of a session's run
func (h *VerificationHandler) GetRun(c *gin.Context) {
	correlationID := getCorrelationID(c)
	sessionID, ok := sessionParam(c, correlationID)
	if !ok {
		return
	}

	state, err := h.service.GetRun(sessionID)
	if err != nil {
		h.fail(c, err, correlationID, "get_run", map[string]interface{}{"session_id": sessionID})
		return
	}

	c.JSON(http.StatusOK, state)
}

// StreamRun sends snapshots of the session's run as server-sent events until the run ends,
// the session is closed or the client disconnects
func (h *VerificationHandler) StreamRun(c *gin.Context) {
	correlationID := getCorrelationID(c)
	sessionID, ok := sessionParam(c, correlationID)
	if !ok {
		return
	}

	sub, err := h.service.Subscribe(sessionID)
	if err != nil {
		h.fail(c, err, correlationID, "stream_run", map[string]interface{}{"session_id": sessionID})
		return
	}
	defer sub.Close()

	logger.WithCorrelationID(correlationID).WithField("session_id", sessionID).Debug("Run event stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case state := <-sub.C:
			c.SSEvent("snapshot", state)
			return !state.Terminal()
		case <-sub.Done:
			c.SSEvent("closed", gin.H{"session_id": sessionID})
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Preview returns the display buffer split into highlighted segments
func (h *VerificationHandler) Preview(c *gin.Context) {
	correlationID := getCorrelationID(c)
	sessionID, ok := sessionParam(c, correlationID)
	if !ok {
		return
	}

	response, err := h.service.Preview(sessionID)
	if err != nil {
		h.fail(c, err, correlationID, "preview_run", map[string]interface{}{"session_id": sessionID})
		return
	}

	c.JSON(http.StatusOK, response)
}

// AcceptFix applies a refuted claim's correction to the display buffer
func (h *VerificationHandler) AcceptFix(c *gin.Context) {
	correlationID := getCorrelationID(c)
	sessionID, ok := sessionParam(c, correlationID)
	if !ok {
		return
	}

	var req services.AcceptFixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), correlationID)
		return
	}
	if *req.ClaimIndex < 0 {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", "claim_index must not be negative", correlationID)
		return
	}

	response, err := h.service.AcceptFix(sessionID, *req.ClaimIndex, correlationID)
	if err != nil {
		h.fail(c, err, correlationID, "accept_fix", map[string]interface{}{
			"session_id":  sessionID,
			"claim_index": *req.ClaimIndex,
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelRun stops the session's run and discards the session
func (h *VerificationHandler) CancelRun(c *gin.Context) {
	correlationID := getCorrelationID(c)
	sessionID, ok := sessionParam(c, correlationID)
	if !ok {
		return
	}

	if err := h.service.CancelRun(sessionID, correlationID); err != nil {
		h.fail(c, err, correlationID, "cancel_run", map[string]interface{}{"session_id": sessionID})
		return
	}

	c.Status(http.StatusNoContent)
}
