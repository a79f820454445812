package handlers

import (
	"net/http"

	"claimcheck/internal/logger"
	"claimcheck/internal/services"
	"claimcheck/internal/utils"

	"github.com/gin-gonic/gin"
)

// VerificationHandler serves the oracle and run endpoints
type VerificationHandler struct {
	service services.VerificationServiceInterface
}

func NewVerificationHandler(service services.VerificationServiceInterface) *VerificationHandler {
	return &VerificationHandler{
		service: service,
	}
}

// ExtractClaims runs claim extraction on the posted content
func (h *VerificationHandler) ExtractClaims(c *gin.Context) {
	correlationID := getCorrelationID(c)

	var req services.ExtractClaimsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), correlationID)
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"content_length": len(req.Content),
		"client_ip":      utils.GetClientIP(c.Request),
	}).Info("Claim extraction request received")

	response, err := h.service.ExtractClaims(c.Request.Context(), &req, correlationID)
	if err != nil {
		h.fail(c, err, correlationID, "extract_claims", nil)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Search returns evidence documents for a claim
func (h *VerificationHandler) Search(c *gin.Context) {
	correlationID := getCorrelationID(c)

	var req services.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), correlationID)
		return
	}

	response, err := h.service.Search(c.Request.Context(), &req, correlationID)
	if err != nil {
		h.fail(c, err, correlationID, "search_evidence", map[string]interface{}{
			"claim": logger.Truncate(req.Claim, 100),
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// VerifyClaims judges one claim against the posted evidence
func (h *VerificationHandler) VerifyClaims(c *gin.Context) {
	correlationID := getCorrelationID(c)

	var req services.VerifyClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorWithCorrelation(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), correlationID)
		return
	}

	verdict, err := h.service.VerifyClaim(c.Request.Context(), &req, correlationID)
	if err != nil {
		h.fail(c, err, correlationID, "verify_claim", map[string]interface{}{
			"evidence_count": len(req.Evidence),
		})
		return
	}

	c.JSON(http.StatusOK, verdict)
}

func (h *VerificationHandler) fail(c *gin.Context, err error, correlationID, operation string, fields map[string]interface{}) {
	statusCode, errorCode := classifyError(err)

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["error_code"] = errorCode
	fields["status_code"] = statusCode
	fields["operation"] = operation
	if statusCode >= http.StatusInternalServerError {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, fields)
	} else {
		logger.WithCorrelationID(correlationID).WithFields(fields).WithError(err).Warn("Request failed")
	}

	writeErrorWithCorrelation(c, statusCode, errorCode, err.Error(), correlationID)
}
