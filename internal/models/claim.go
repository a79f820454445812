package models

import (
	"errors"
	"strings"
)

// ErrAlreadyTerminal is returned when a claim that already succeeded or failed is transitioned again
var ErrAlreadyTerminal = errors.New("claim already in a terminal state")

// RawClaim is a claim as produced by the extraction oracle
type RawClaim struct {
	Claim        string `json:"claim" binding:"required"`
	OriginalText string `json:"original_text" binding:"required"`
}

// EvidenceDocument is a candidate source for judging a claim. URLs are not unique.
type EvidenceDocument struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// ClaimStatus is the lifecycle position of a processed claim
type ClaimStatus string

const (
	StatusPending ClaimStatus = "pending"
	StatusSuccess ClaimStatus = "success"
	StatusError   ClaimStatus = "error"
)

// ProcessedClaim is the unit tracked by the orchestrator for one extracted claim
type ProcessedClaim struct {
	Index        int         `json:"index"`
	Claim        string      `json:"claim"`
	OriginalText string      `json:"original_text"`
	Status       ClaimStatus `json:"status"`
	Result       *Verdict    `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
	ErrorKind    string      `json:"error_kind,omitempty"`
}

// NewPendingClaim materializes a raw claim at the given index
func NewPendingClaim(index int, raw RawClaim) ProcessedClaim {
	return ProcessedClaim{
		Index:        index,
		Claim:        raw.Claim,
		OriginalText: raw.OriginalText,
		Status:       StatusPending,
	}
}

// Terminal reports whether the claim has left the pending state
func (p *ProcessedClaim) Terminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusError
}

// Resolve moves a pending claim to success with its verdict
func (p *ProcessedClaim) Resolve(verdict Verdict) error {
	if p.Terminal() {
		return ErrAlreadyTerminal
	}
	v := verdict
	v.URLSources = append([]string(nil), verdict.URLSources...)
	p.Status = StatusSuccess
	p.Result = &v
	p.Error = ""
	p.ErrorKind = ""
	return nil
}

// Fail moves a pending claim to error. An empty message is replaced so the error is never blank.
func (p *ProcessedClaim) Fail(kind, message string) error {
	if p.Terminal() {
		return ErrAlreadyTerminal
	}
	if strings.TrimSpace(message) == "" {
		message = "claim verification failed"
	}
	p.Status = StatusError
	p.Result = nil
	p.Error = message
	p.ErrorKind = kind
	return nil
}

// Assessment returns the verdict's assessment, or "" when the claim has no result
func (p *ProcessedClaim) Assessment() Assessment {
	if p.Status != StatusSuccess || p.Result == nil {
		return ""
	}
	return p.Result.Assessment
}

// Raw returns the claim as extracted
func (p *ProcessedClaim) Raw() RawClaim {
	return RawClaim{Claim: p.Claim, OriginalText: p.OriginalText}
}
