package metrics

import (
	"errors"
	"testing"
	"time"

	"claimcheck/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_ClaimFinished(t *testing.T) {
	r := NewRecorder()
	before := testutil.ToFloat64(claimsTotal.WithLabelValues("error", "no_evidence_found"))
	beforeOK := testutil.ToFloat64(claimsTotal.WithLabelValues("success", "none"))

	r.ClaimFinished(models.StatusError, "no_evidence_found")
	r.ClaimFinished(models.StatusSuccess, "")

	assert.Equal(t, before+1, testutil.ToFloat64(claimsTotal.WithLabelValues("error", "no_evidence_found")))
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(claimsTotal.WithLabelValues("success", "none")))
}

func TestRecorder_RunFinished(t *testing.T) {
	r := NewRecorder()
	before := testutil.ToFloat64(runsTotal.WithLabelValues("completed"))

	r.RunFinished(models.RunCompleted, 3*time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("completed")))
}

func TestRecorder_ObserveOracle(t *testing.T) {
	r := NewRecorder()

	r.ObserveOracle("evidence", 200*time.Millisecond, nil)
	r.ObserveOracle("evidence", time.Second, errors.New("timeout"))

	assert.GreaterOrEqual(t, testutil.CollectAndCount(oracleDuration), 2)
}

func TestFixAcceptedAndSessions(t *testing.T) {
	before := testutil.ToFloat64(fixesTotal.WithLabelValues("true"))

	FixAccepted(true)
	SetActiveSessions(4)

	assert.Equal(t, before+1, testutil.ToFloat64(fixesTotal.WithLabelValues("true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(activeSessions))
}
