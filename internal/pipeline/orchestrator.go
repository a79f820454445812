package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"claimcheck/internal/agents"
	"claimcheck/internal/evidence"
	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	component = "pipeline"

	// Oracle names used for telemetry
	OracleExtraction   = "extraction"
	OracleEvidence     = "evidence"
	OracleVerification = "verification"
)

// Recorder receives run telemetry
type Recorder interface {
	ObserveOracle(oracle string, duration time.Duration, err error)
	ClaimFinished(status models.ClaimStatus, kind string)
	RunFinished(status models.RunStatus, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOracle(string, time.Duration, error) {}
func (nopRecorder) ClaimFinished(models.ClaimStatus, string) {}
func (nopRecorder) RunFinished(models.RunStatus, time.Duration) {}

// Orchestrator drives verification runs from raw text to terminal claim states
type Orchestrator struct {
	extractor   agents.ClaimExtractor
	source      evidence.Source
	verifier    agents.ClaimVerifier
	concurrency int
	limiter     *rate.Limiter
	logger      *logrus.Logger
	recorder    Recorder
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithConcurrency bounds how many claims are verified at once. 1 is strictly sequential.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithRateLimiter paces the start of each claim's verification
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(o *Orchestrator) {
		o.limiter = limiter
	}
}

// WithLogger replaces the package logger
func WithLogger(log *logrus.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = log
	}
}

// WithMetrics records run telemetry
func WithMetrics(recorder Recorder) Option {
	return func(o *Orchestrator) {
		if recorder != nil {
			o.recorder = recorder
		}
	}
}

// New creates an orchestrator over the three external calls
func New(extractor agents.ClaimExtractor, source evidence.Source, verifier agents.ClaimVerifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:   extractor,
		source:      source,
		verifier:    verifier,
		concurrency: 3,
		logger:      logger.Log,
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extract calls the extraction oracle. Every returned span is a substring of text.
func (o *Orchestrator) Extract(ctx context.Context, text string) ([]models.RawClaim, error) {
	start := time.Now()
	claims, err := o.extractor.Extract(ctx, text)
	o.recorder.ObserveOracle(OracleExtraction, time.Since(start), err)
	if err != nil {
		if !agents.IsExtractionFailure(err) {
			err = agents.NewExtractionFailure(component, agents.ReasonUpstream, "extraction call failed", err)
		}
		return nil, err
	}

	for i, claim := range claims {
		if strings.TrimSpace(claim.Claim) == "" || claim.OriginalText == "" {
			return nil, agents.NewExtractionFailure(component, agents.ReasonEmptyClaim, "extracted claim is empty", nil)
		}
		if !strings.Contains(text, claim.OriginalText) {
			return nil, agents.NewExtractionFailure(component, agents.ReasonSpanNotFound,
				"original_text of claim "+strconv.Itoa(i)+" is not in the input", nil)
		}
	}
	return claims, nil
}

// VerifyOne gathers evidence for one claim and judges it
func (o *Orchestrator) VerifyOne(ctx context.Context, claim models.RawClaim) (models.Verdict, error) {
	start := time.Now()
	docs, err := o.source.Search(ctx, claim.Claim)
	o.recorder.ObserveOracle(OracleEvidence, time.Since(start), err)
	if err != nil {
		var claimErr *agents.ClaimError
		if !errors.As(err, &claimErr) {
			err = agents.NewTransportFailure(OracleEvidence, "evidence search failed", err)
		}
		return models.Verdict{}, err
	}
	if len(docs) == 0 {
		return models.Verdict{}, agents.NewNoEvidenceFound(OracleEvidence)
	}

	start = time.Now()
	verdict, err := o.verifier.Verify(ctx, claim.Claim, claim.OriginalText, docs)
	o.recorder.ObserveOracle(OracleVerification, time.Since(start), err)
	if err != nil {
		return models.Verdict{}, err
	}

	verdict.Normalize(claim.OriginalText)
	if err := verdict.Validate(); err != nil {
		return models.Verdict{}, agents.NewVerificationFailure(OracleVerification, agents.ReasonInvalidVerdict, "verdict failed validation", err)
	}
	return verdict, nil
}

// Run performs a whole verification run. Observers see the extracting state, the
// fully materialized pending list, one snapshot per claim outcome and the final state.
// The returned error is non-nil only when extraction fails or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, runID, text string, observers ...Observer) (models.RunState, error) {
	start := time.Now()
	if runID == "" {
		runID = uuid.New().String()
	}
	log := o.logger.WithFields(map[string]interface{}{
		"component":      component,
		"correlation_id": logger.CorrelationID(ctx),
		"run_id":         runID,
	})

	run := &runTracker{
		state: models.RunState{
			RunID:  runID,
			Input:  text,
			Status: models.RunExtracting,
			Claims: []models.ProcessedClaim{},
		},
		dispatch: newDispatcher(observers, o.logger),
	}
	defer run.dispatch.close()
	if sessionID := SessionID(ctx); sessionID != "" {
		run.state.SessionID = sessionID
	}
	run.publish()

	log.WithField("content_length", len(text)).Info("Verification run started")

	raws, err := o.Extract(ctx, text)
	if err != nil {
		log.WithError(err).WithField("error_kind", string(agents.KindOf(err))).Error("Claim extraction failed, ending run")
		final := run.finish(models.RunFailed, err.Error(), string(agents.KindExtraction))
		o.recorder.RunFinished(models.RunFailed, time.Since(start))
		return final, err
	}

	run.materialize(raws)
	log.WithField("claims_count", len(raws)).Info("Extracted claims, starting verification")

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	var paceErr error
	for i, raw := range raws {
		if paceErr = o.pace(ctx); paceErr != nil {
			break
		}
		g.Go(func() error {
			o.processClaim(ctx, log, run, i, len(raws), raw)
			return nil
		})
	}
	_ = g.Wait()

	// The limiter refuses waits that would outlive the deadline before ctx is done.
	if err := ctx.Err(); err != nil || paceErr != nil {
		if err == nil {
			err = paceErr
		}
		cancelled := run.cancelPending()
		for range cancelled {
			o.recorder.ClaimFinished(models.StatusError, string(agents.KindTransport))
		}
		log.WithError(err).WithField("cancelled_claims", len(cancelled)).Warn("Verification run cancelled")
		final := run.finish(models.RunFailed, "run cancelled", string(agents.KindTransport))
		o.recorder.RunFinished(models.RunFailed, time.Since(start))
		return final, err
	}

	final := run.finish(models.RunCompleted, "", "")
	counts := final.Counts()
	log.WithFields(map[string]interface{}{
		"total_claims":        len(final.Claims),
		"claims_supported":    counts.Supported,
		"claims_refuted":      counts.Refuted,
		"claims_insufficient": counts.Insufficient,
		"claims_failed":       counts.Error,
		"duration_ms":         time.Since(start).Milliseconds(),
	}).Info("Verification run completed")
	o.recorder.RunFinished(models.RunCompleted, time.Since(start))

	return final, nil
}

// Stream runs the pipeline in the background and returns every snapshot.
// The channel is closed when the run ends. The reader must drain it or cancel ctx.
func (o *Orchestrator) Stream(ctx context.Context, text string) <-chan models.RunState {
	ch := make(chan models.RunState, 8)
	go func() {
		defer close(ch)
		_, _ = o.Run(ctx, "", text, ObserverFunc(func(state models.RunState) {
			select {
			case ch <- state:
			case <-ctx.Done():
			}
		}))
	}()
	return ch
}

func (o *Orchestrator) pace(ctx context.Context) error {
	if o.limiter == nil {
		return ctx.Err()
	}
	return o.limiter.Wait(ctx)
}

func (o *Orchestrator) processClaim(ctx context.Context, log *logrus.Entry, run *runTracker, index, total int, raw models.RawClaim) {
	if ctx.Err() != nil {
		return
	}

	claimLog := log.WithFields(map[string]interface{}{
		"claim_num":    index + 1,
		"total_claims": total,
	})
	claimLog.WithField("claim", logger.Truncate(raw.Claim, 100)).Info("Checking claim")

	verdict, err := o.VerifyOne(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			// left pending for the cancellation sweep
			return
		}
		kind := string(agents.KindOf(err))
		if run.fail(index, kind, failureMessage(err)) {
			o.recorder.ClaimFinished(models.StatusError, kind)
		}
		claimLog.WithError(err).WithField("error_kind", kind).Warn("Failed to verify claim")
		return
	}

	if run.resolve(index, verdict) {
		o.recorder.ClaimFinished(models.StatusSuccess, "")
	}
	claimLog.WithFields(map[string]interface{}{
		"assessment": string(verdict.Assessment),
		"confidence": verdict.ConfidenceScore,
		"summary":    logger.Truncate(verdict.Summary, 100),
	}).Info("Claim verification result")
}

// failureMessage is the human-readable error stored on a failed claim
func failureMessage(err error) string {
	var claimErr *agents.ClaimError
	if errors.As(err, &claimErr) {
		if claimErr.Cause != nil {
			return claimErr.Message + ": " + claimErr.Cause.Error()
		}
		return claimErr.Message
	}
	return err.Error()
}

// runTracker owns one run's state. Every write is addressed by claim index and
// its snapshot is queued under the same lock, so observers never see an older
// state after a newer one.
type runTracker struct {
	mu       sync.Mutex
	state    models.RunState
	dispatch *dispatcher
}

func (r *runTracker) publish() {
	r.dispatch.enqueue(r.state.Clone())
}

func (r *runTracker) materialize(raws []models.RawClaim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claims := make([]models.ProcessedClaim, len(raws))
	for i, raw := range raws {
		claims[i] = models.NewPendingClaim(i, raw)
	}
	r.state.Claims = claims
	r.state.Status = models.RunVerifying
	r.publish()
}

func (r *runTracker) resolve(index int, verdict models.Verdict) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.state.Claims[index].Resolve(verdict); err != nil {
		return false
	}
	r.publish()
	return true
}

func (r *runTracker) fail(index int, kind, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.state.Claims[index].Fail(kind, message); err != nil {
		return false
	}
	r.publish()
	return true
}

// cancelPending fails every claim still pending and returns their indexes
func (r *runTracker) cancelPending() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cancelled []int
	for i := range r.state.Claims {
		if r.state.Claims[i].Fail(string(agents.KindTransport), "run cancelled") == nil {
			cancelled = append(cancelled, i)
		}
	}
	if len(cancelled) > 0 {
		r.publish()
	}
	return cancelled
}

func (r *runTracker) finish(status models.RunStatus, message, kind string) models.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Status = status
	r.state.Error = message
	r.state.ErrorKind = kind
	r.publish()
	return r.state.Clone()
}
