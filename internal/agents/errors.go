package agents

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and telemetry
type Kind string

const (
	KindExtraction   Kind = "extraction_failure"
	KindNoEvidence   Kind = "no_evidence_found"
	KindVerification Kind = "verification_failure"
	KindTransport    Kind = "transport_failure"
)

// Failure reasons carried on ClaimError.Reason
const (
	ReasonEmptyInput        = "empty_input"
	ReasonInputTooLong      = "input_too_long"
	ReasonMalformedJSON     = "malformed_json"
	ReasonUnexpectedShape   = "unexpected_shape"
	ReasonStringifiedClaims = "stringified_claims"
	ReasonEmptyClaim        = "empty_claim"
	ReasonSpanNotFound      = "span_not_found"
	ReasonInvalidAssessment = "invalid_assessment"
	ReasonInvalidConfidence = "invalid_confidence"
	ReasonInvalidVerdict    = "invalid_verdict"
	ReasonNoResults         = "no_results"
	ReasonUpstream          = "upstream_error"
	ReasonCancelled         = "cancelled"
)

// ClaimError is a typed failure from one of the oracle stages
type ClaimError struct {
	Kind    Kind
	Agent   string
	Reason  string
	Message string
	Cause   error
}

func (e *ClaimError) Error() string {
	base := fmt.Sprintf("%s (%s) in %s: %s", e.Kind, e.Reason, e.Agent, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *ClaimError) Unwrap() error {
	return e.Cause
}

// NewExtractionFailure creates a whole-run extraction failure
func NewExtractionFailure(agent, reason, message string, cause error) *ClaimError {
	return &ClaimError{Kind: KindExtraction, Agent: agent, Reason: reason, Message: message, Cause: cause}
}

// NewNoEvidenceFound creates the failure for a claim whose evidence search came back empty
func NewNoEvidenceFound(agent string) *ClaimError {
	return &ClaimError{Kind: KindNoEvidence, Agent: agent, Reason: ReasonNoResults, Message: "no sources found for this claim"}
}

// NewVerificationFailure creates a failure for malformed or non-conforming verdict output
func NewVerificationFailure(agent, reason, message string, cause error) *ClaimError {
	return &ClaimError{Kind: KindVerification, Agent: agent, Reason: reason, Message: message, Cause: cause}
}

// NewTransportFailure wraps a network, timeout or upstream API error
func NewTransportFailure(agent, message string, cause error) *ClaimError {
	return &ClaimError{Kind: KindTransport, Agent: agent, Reason: ReasonUpstream, Message: message, Cause: cause}
}

// KindOf returns the failure kind of err. Unclassified errors count as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr.Kind
	}
	return KindTransport
}

// ReasonOf returns the failure reason of err, or "" when err is not a ClaimError
func ReasonOf(err error) string {
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr.Reason
	}
	return ""
}

// IsTransport reports whether err is a transport-level failure
func IsTransport(err error) bool {
	return err != nil && KindOf(err) == KindTransport
}

// IsExtractionFailure reports whether err aborts a whole run
func IsExtractionFailure(err error) bool {
	return err != nil && KindOf(err) == KindExtraction
}
