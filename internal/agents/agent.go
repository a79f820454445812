package agents

import (
	"context"

	"claimcheck/internal/models"
)

// ClaimExtractor turns free-form text into claims anchored to literal spans of it
type ClaimExtractor interface {
	Extract(ctx context.Context, text string) ([]models.RawClaim, error)
}

// ClaimVerifier judges a single claim against evidence documents
type ClaimVerifier interface {
	Verify(ctx context.Context, claim, originalText string, docs []models.EvidenceDocument) (models.Verdict, error)
}

var (
	_ ClaimExtractor = (*ExtractorAgent)(nil)
	_ ClaimVerifier  = (*VerifierAgent)(nil)
)
