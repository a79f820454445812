package metrics

import (
	"strconv"
	"time"

	"claimcheck/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// claimsTotal counts terminal claim outcomes by status and failure kind
	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_claims_total",
		Help: "Total claims reaching a terminal state by status and failure kind",
	}, []string{"status", "kind"})

	// runsTotal counts finished runs by final status
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_runs_total",
		Help: "Total verification runs by final status",
	}, []string{"status"})

	// runDuration tracks whole-run latency
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "claimcheck_run_duration_seconds",
		Help:    "Verification run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})

	// oracleDuration tracks each external call by oracle and outcome
	oracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claimcheck_oracle_duration_seconds",
		Help:    "External oracle call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"oracle", "outcome"})

	// fixesTotal counts accepted fixes by whether the buffer changed
	fixesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_fixes_total",
		Help: "Total accepted fixes by whether the display buffer changed",
	}, []string{"changed"})

	// activeSessions is the number of sessions held in memory
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "claimcheck_sessions_active",
		Help: "Sessions currently held in memory",
	})
)

// Recorder reports pipeline telemetry to Prometheus
type Recorder struct{}

// NewRecorder creates a Prometheus recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveOracle records one external call
func (Recorder) ObserveOracle(oracle string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	oracleDuration.WithLabelValues(oracle, outcome).Observe(duration.Seconds())
}

// ClaimFinished records a claim reaching a terminal state
func (Recorder) ClaimFinished(status models.ClaimStatus, kind string) {
	if kind == "" {
		kind = "none"
	}
	claimsTotal.WithLabelValues(string(status), kind).Inc()
}

// RunFinished records a finished run
func (Recorder) RunFinished(status models.RunStatus, duration time.Duration) {
	runsTotal.WithLabelValues(string(status)).Inc()
	runDuration.Observe(duration.Seconds())
}

// FixAccepted records an accepted fix
func FixAccepted(changed bool) {
	fixesTotal.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// SetActiveSessions records the number of live sessions
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
