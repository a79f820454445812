package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"claimcheck/internal/agents"
	"claimcheck/internal/evidence"
	"claimcheck/internal/logger"
	"claimcheck/internal/metrics"
	"claimcheck/internal/models"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/queue"
	"claimcheck/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// VerificationServiceInterface is what the HTTP handlers depend on
type VerificationServiceInterface interface {
	ExtractClaims(ctx context.Context, req *ExtractClaimsRequest, correlationID string) (*ExtractClaimsResponse, error)
	Search(ctx context.Context, req *SearchRequest, correlationID string) (*SearchResponse, error)
	VerifyClaim(ctx context.Context, req *VerifyClaimRequest, correlationID string) (*models.Verdict, error)
	StartRun(req *StartRunRequest, correlationID string) (*RunResponse, error)
	SubmitRun(ctx context.Context, req *StartRunRequest, correlationID string) (*RunResponse, error)
	GetRun(sessionID string) (*models.RunState, error)
	Preview(sessionID string) (*PreviewResponse, error)
	AcceptFix(sessionID string, claimIndex int, correlationID string) (*FixResponse, error)
	Subscribe(sessionID string) (*session.Subscription, error)
	CancelRun(sessionID, correlationID string) error
}

// RunSubmitter queues run requests for workers
type RunSubmitter interface {
	PublishRunRequest(ctx context.Context, req queue.RunRequest) error
}

// VerificationService coordinates runs, sessions and the single-oracle endpoints
type VerificationService struct {
	orchestrator  *pipeline.Orchestrator
	source        evidence.Source
	verifier      agents.ClaimVerifier
	registry      *session.Registry
	progress      pipeline.Observer
	submitter     RunSubmitter
	maxInputChars int
	validate      *validator.Validate
	baseCtx       context.Context
	runs          sync.WaitGroup
}

// Option configures a VerificationService
type Option func(*VerificationService)

// WithProgressObserver forwards every run snapshot to observer as well as the session
func WithProgressObserver(observer pipeline.Observer) Option {
	return func(s *VerificationService) {
		s.progress = observer
	}
}

// WithRunSubmitter enables queued runs
func WithRunSubmitter(submitter RunSubmitter) Option {
	return func(s *VerificationService) {
		s.submitter = submitter
	}
}

// WithMaxInputChars bounds the length of submitted content
func WithMaxInputChars(n int) Option {
	return func(s *VerificationService) {
		s.maxInputChars = n
	}
}

// WithBaseContext sets the parent context of background runs
func WithBaseContext(ctx context.Context) Option {
	return func(s *VerificationService) {
		s.baseCtx = ctx
	}
}

// NewVerificationService creates the service. source and verifier back the
// single-oracle endpoints and should be the ones the orchestrator was built with.
func NewVerificationService(orchestrator *pipeline.Orchestrator, source evidence.Source, verifier agents.ClaimVerifier, registry *session.Registry, opts ...Option) *VerificationService {
	s := &VerificationService{
		orchestrator: orchestrator,
		source:       source,
		verifier:     verifier,
		registry:     registry,
		validate:     validator.New(),
		baseCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractClaims runs the extraction oracle alone
func (s *VerificationService) ExtractClaims(ctx context.Context, req *ExtractClaimsRequest, correlationID string) (*ExtractClaimsResponse, error) {
	if err := s.validateContent(req, req.Content); err != nil {
		return nil, err
	}
	ctx = logger.ContextWithCorrelationID(ctx, correlationID)

	claims, err := s.orchestrator.Extract(ctx, req.Content)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation":  "extract_claims",
			"error_kind": string(agents.KindOf(err)),
		})
		return nil, err
	}

	logger.WithCorrelationID(correlationID).WithField("claims_count", len(claims)).Info("Claims extracted")
	return &ExtractClaimsResponse{Claims: claims}, nil
}

// Search runs the evidence source alone
func (s *VerificationService) Search(ctx context.Context, req *SearchRequest, correlationID string) (*SearchResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ctx = logger.ContextWithCorrelationID(ctx, correlationID)

	docs, err := s.source.Search(ctx, req.Claim)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "search_evidence",
			"source":    s.source.Name(),
		})
		return nil, agents.NewTransportFailure("evidence", "evidence search failed", err)
	}
	if docs == nil {
		docs = []models.EvidenceDocument{}
	}

	logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
		"source":        s.source.Name(),
		"results_count": len(docs),
	}).Info("Evidence search completed")
	return &SearchResponse{Results: docs}, nil
}

// VerifyClaim runs the verification oracle alone against caller-supplied evidence
func (s *VerificationService) VerifyClaim(ctx context.Context, req *VerifyClaimRequest, correlationID string) (*models.Verdict, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ctx = logger.ContextWithCorrelationID(ctx, correlationID)

	verdict, err := s.verifier.Verify(ctx, req.Claim, req.OriginalText, req.Evidence)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation":  "verify_claim",
			"error_kind": string(agents.KindOf(err)),
		})
		return nil, err
	}
	verdict.Normalize(req.OriginalText)
	if err := verdict.Validate(); err != nil {
		return nil, agents.NewVerificationFailure("verification", "invalid_verdict", "verdict failed validation", err)
	}
	return &verdict, nil
}

// StartRun begins a run for the session and processes it in the background.
// Any run already in flight for the session is cancelled and its results discarded.
func (s *VerificationService) StartRun(req *StartRunRequest, correlationID string) (*RunResponse, error) {
	if err := s.validateContent(req, req.Content); err != nil {
		return nil, err
	}

	run := s.registry.Begin(s.baseCtx, req.SessionID, req.Content)
	metrics.SetActiveSessions(s.registry.Len())

	logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
		"session_id":     run.SessionID,
		"run_id":         run.RunID,
		"content_length": len(req.Content),
	}).Info("Verification run created")

	s.launch(run, req.Content, correlationID)

	return &RunResponse{
		SessionID: run.SessionID,
		RunID:     run.RunID,
		Status:    models.RunExtracting,
		Message:   "Verification run started",
	}, nil
}

// SubmitRun queues the run for a worker instead of processing it here
func (s *VerificationService) SubmitRun(ctx context.Context, req *StartRunRequest, correlationID string) (*RunResponse, error) {
	if s.submitter == nil {
		return nil, ErrQueueDisabled
	}
	if err := s.validateContent(req, req.Content); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	err := s.submitter.PublishRunRequest(ctx, queue.RunRequest{
		SessionID:     sessionID,
		Content:       req.Content,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation":  "submit_run",
			"session_id": sessionID,
		})
		return nil, fmt.Errorf("failed to queue verification run: %w", err)
	}

	return &RunResponse{
		SessionID: sessionID,
		Status:    models.RunExtracting,
		Message:   "Verification run queued for processing",
	}, nil
}

// ProcessRunRequest runs a queued request to completion. Used by the worker.
func (s *VerificationService) ProcessRunRequest(ctx context.Context, req queue.RunRequest) error {
	start := &StartRunRequest{Content: req.Content, SessionID: req.SessionID}
	if err := s.validateContent(start, start.Content); err != nil {
		return err
	}

	run := s.registry.Begin(ctx, req.SessionID, req.Content)
	defer func() {
		_ = s.registry.End(run.SessionID)
	}()

	final, err := s.execute(run, req.Content, req.CorrelationID)
	if err != nil && agents.IsExtractionFailure(err) {
		// the failure is recorded in the published state; retrying will not help
		return nil
	}
	if err != nil {
		return err
	}

	logger.WithCorrelationID(req.CorrelationID).WithFields(map[string]interface{}{
		"session_id": run.SessionID,
		"run_id":     run.RunID,
		"status":     string(final.Status),
	}).Info("Queued verification run finished")
	return nil
}

// GetRun returns the latest snapshot of the session's current run
func (s *VerificationService) GetRun(sessionID string) (*models.RunState, error) {
	state, err := s.registry.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Preview renders the session's display buffer with highlighted claims
func (s *VerificationService) Preview(sessionID string) (*PreviewResponse, error) {
	state, err := s.registry.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	editor, err := s.registry.Editor(sessionID)
	if err != nil {
		return nil, err
	}

	response := &PreviewResponse{
		SessionID: sessionID,
		RunID:     state.RunID,
		Status:    state.Status,
		Buffer:    editor.Buffer(),
		Segments:  editor.Segments(state.Claims),
		Counts:    state.Counts(),
	}
	if selected, ok := editor.Selected(state.Claims); ok {
		response.Selected = &selected
	}
	return response, nil
}

// AcceptFix applies the correction of the claim at claimIndex to the session's buffer
func (s *VerificationService) AcceptFix(sessionID string, claimIndex int, correlationID string) (*FixResponse, error) {
	state, err := s.registry.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	editor, err := s.registry.Editor(sessionID)
	if err != nil {
		return nil, err
	}

	var claim *models.ProcessedClaim
	for i := range state.Claims {
		if state.Claims[i].Index == claimIndex {
			claim = &state.Claims[i]
			break
		}
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: index %d", ErrClaimNotFound, claimIndex)
	}
	if claim.Status != models.StatusSuccess || claim.Result == nil {
		return nil, fmt.Errorf("%w: claim %d is %s", ErrClaimNotFixable, claimIndex, claim.Status)
	}
	if claim.Assessment() != models.Refuted {
		return nil, fmt.Errorf("%w: claim %d is %s", ErrClaimNotFixable, claimIndex, claim.Assessment())
	}

	changed := editor.AcceptFix(*claim, state.Claims)
	metrics.FixAccepted(changed)

	logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
		"session_id":  sessionID,
		"claim_index": claimIndex,
		"changed":     changed,
	}).Info("Claim fix accepted")

	response := &FixResponse{
		SessionID: sessionID,
		Buffer:    editor.Buffer(),
		Changed:   changed,
	}
	if selected, ok := editor.Selected(state.Claims); ok {
		response.Selected = &selected
	}
	return response, nil
}

// Subscribe streams snapshots of the session's current run
func (s *VerificationService) Subscribe(sessionID string) (*session.Subscription, error) {
	return s.registry.Subscribe(sessionID)
}

// CancelRun stops the session's run and forgets the session
func (s *VerificationService) CancelRun(sessionID, correlationID string) error {
	if err := s.registry.End(sessionID); err != nil {
		return err
	}
	metrics.SetActiveSessions(s.registry.Len())
	logger.WithCorrelationID(correlationID).WithField("session_id", sessionID).Info("Verification session ended")
	return nil
}

// PruneSessions drops finished sessions idle for longer than maxAge
func (s *VerificationService) PruneSessions(maxAge time.Duration) int {
	removed := s.registry.Prune(maxAge)
	metrics.SetActiveSessions(s.registry.Len())
	if removed > 0 {
		logger.Log.WithField("removed_sessions", removed).Info("Pruned idle sessions")
	}
	return removed
}

// Wait blocks until every background run has returned
func (s *VerificationService) Wait() {
	s.runs.Wait()
}

func (s *VerificationService) launch(run session.Run, content, correlationID string) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_, _ = s.execute(run, content, correlationID)
	}()
}

func (s *VerificationService) execute(run session.Run, content, correlationID string) (final models.RunState, err error) {
	defer s.setupRunPanicRecovery(run, correlationID, &err)()

	ctx := logger.ContextWithCorrelationID(run.Context, correlationID)
	var forward []pipeline.Observer
	if s.progress != nil {
		forward = append(forward, s.progress)
	}

	final, err = s.orchestrator.Run(ctx, run.RunID, content, s.registry.Observer(run.RunID, forward...))
	if err != nil {
		logger.Log.WithFields(map[string]interface{}{
			"correlation_id": correlationID,
			"session_id":     run.SessionID,
			"run_id":         run.RunID,
			"error_kind":     final.ErrorKind,
		}).WithError(err).Warn("Verification run ended with failure")
	}
	return final, err
}

// setupRunPanicRecovery marks the run failed if the pipeline panics
func (s *VerificationService) setupRunPanicRecovery(run session.Run, correlationID string, errOut *error) func() {
	return func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"panic":          r,
				"stack_trace":    logger.GetStackTrace(),
				"session_id":     run.SessionID,
				"run_id":         run.RunID,
				"correlation_id": correlationID,
			}).Error("Verification run panicked")

			if state, err := s.registry.Snapshot(run.SessionID); err == nil && state.RunID == run.RunID {
				state.Status = models.RunFailed
				state.Error = fmt.Sprintf("run panicked: %v", r)
				s.registry.Apply(run.RunID, state)
			}
			*errOut = fmt.Errorf("verification run panicked: %v", r)
		}
	}
}

func (s *VerificationService) validateContent(req interface{}, content string) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", ErrInvalidRequest)
	}
	if s.maxInputChars > 0 && len([]rune(content)) > s.maxInputChars {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidRequest, s.maxInputChars)
	}
	return nil
}

var _ VerificationServiceInterface = (*VerificationService)(nil)
