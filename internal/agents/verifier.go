package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"claimcheck/internal/clients"
	"claimcheck/internal/models"
)

const verifierSystemPrompt = `You are an expert fact-checker. You judge claims strictly against the sources you are given and answer only with JSON.`

// VerifierAgent is the verification oracle backed by a language model
type VerifierAgent struct {
	*BaseAgent
	llm             clients.LLMClient
	maxSourceChars  int
	maxSourceBudget int
}

// NewVerifierAgent creates a new verification agent
func NewVerifierAgent(llm clients.LLMClient, maxSourceChars int) *VerifierAgent {
	if maxSourceChars <= 0 {
		maxSourceChars = 4000
	}
	return &VerifierAgent{
		BaseAgent:       NewBaseAgent("claim_verifier"),
		llm:             llm,
		maxSourceChars:  maxSourceChars,
		maxSourceBudget: 40000,
	}
}

// Verify judges claim against docs and returns a normalized verdict
func (v *VerifierAgent) Verify(ctx context.Context, claim, originalText string, docs []models.EvidenceDocument) (models.Verdict, error) {
	start := time.Now()
	v.LogStart(ctx, len(claim))

	if len(docs) == 0 {
		err := NewNoEvidenceFound(v.Name())
		v.LogError(ctx, err, time.Since(start))
		return models.Verdict{}, err
	}

	prompt := v.buildVerificationPrompt(claim, originalText, docs)
	v.LogAPICall(ctx, v.llm.Provider(), len(prompt))

	response, err := v.llm.Complete(ctx, v.Name(), prompt, verifierSystemPrompt)
	if err != nil {
		failure := NewTransportFailure(v.Name(), "verification call failed", err)
		v.LogError(ctx, failure, time.Since(start))
		return models.Verdict{}, failure
	}

	verdict, err := NormalizeVerdict(v.Name(), response, claim, originalText, docs)
	if err != nil {
		v.logger.WithFields(map[string]interface{}{
			"agent":    v.Name(),
			"response": v.TruncateForLog(response, 200),
		}).Debug("Unparseable verification output")
		v.LogError(ctx, err, time.Since(start))
		return models.Verdict{}, err
	}

	v.LogSuccess(ctx, map[string]interface{}{
		"assessment": string(verdict.Assessment),
		"confidence": verdict.ConfidenceScore,
		"sources":    len(verdict.URLSources),
	}, time.Since(start))

	return verdict, nil
}

// buildVerificationPrompt numbers each source and bounds the total evidence text
func (v *VerifierAgent) buildVerificationPrompt(claim, originalText string, docs []models.EvidenceDocument) string {
	var sources strings.Builder
	budget := v.maxSourceBudget
	for i, doc := range docs {
		if budget <= 0 {
			break
		}
		text := v.TruncateContent(strings.TrimSpace(doc.Text), v.maxSourceChars)
		if len(text) > budget {
			text = v.TruncateContent(text, budget)
		}
		budget -= len(text)
		fmt.Fprintf(&sources, "Source %d\nURL: %s\nText: %s\n\n", i+1, doc.URL, text)
	}

	return fmt.Sprintf(`Given a claim and a set of sources, determine whether the claim is true or false based on the text of the sources, or whether there is insufficient information. Consider all the sources collectively.

Original part of the text: %s

Claim: %s

Sources:
%s
Respond with a JSON object with exactly this structure:
{
  "claim": "the claim",
  "assessment": "True" or "False" or "Insufficient Information",
  "summary": "One line explaining why the claim is correct, or what is correct instead",
  "url_sources": ["URLs from the sources above that support the decision"],
  "fixed_original_text": "If the assessment is False, the original text with only the incorrect fact corrected; otherwise the original text unchanged",
  "confidence_score": a number between 0 and 100
}

Return only plain JSON with no markdown.`, originalText, claim, sources.String())
}
