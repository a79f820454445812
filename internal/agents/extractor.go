package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"claimcheck/internal/clients"
	"claimcheck/internal/models"
)

const extractorSystemPrompt = `You are an expert at extracting claims from text. Identify every verifiable factual statement, true or false, including assertions, statistics and quotes. Each claim must be a single verifiable statement.`

// ExtractorAgent is the extraction oracle backed by a language model
type ExtractorAgent struct {
	*BaseAgent
	llm           clients.LLMClient
	maxInputChars int
}

// NewExtractorAgent creates a new extraction agent
func NewExtractorAgent(llm clients.LLMClient, maxInputChars int) *ExtractorAgent {
	return &ExtractorAgent{
		BaseAgent:     NewBaseAgent("claim_extractor"),
		llm:           llm,
		maxInputChars: maxInputChars,
	}
}

// Extract returns the claims in text, each anchored to a verbatim span of it
func (e *ExtractorAgent) Extract(ctx context.Context, text string) ([]models.RawClaim, error) {
	start := time.Now()
	e.LogStart(ctx, len(text))

	if err := e.validateInput(text); err != nil {
		e.LogError(ctx, err, time.Since(start))
		return nil, err
	}

	prompt := buildExtractionPrompt(text)
	e.LogAPICall(ctx, e.llm.Provider(), len(prompt))

	response, err := e.llm.Complete(ctx, e.Name(), prompt, extractorSystemPrompt)
	if err != nil {
		// A failed extraction call ends the whole run
		failure := NewExtractionFailure(e.Name(), ReasonUpstream, "extraction call failed", err)
		e.LogError(ctx, failure, time.Since(start))
		return nil, failure
	}

	claims, err := NormalizeClaims(e.Name(), response, text)
	if err != nil {
		e.logger.WithFields(map[string]interface{}{
			"agent":    e.Name(),
			"response": e.TruncateForLog(response, 200),
		}).Debug("Unparseable extraction output")
		e.LogError(ctx, err, time.Since(start))
		return nil, err
	}

	e.LogSuccess(ctx, map[string]interface{}{"claims_count": len(claims)}, time.Since(start))
	return claims, nil
}

func (e *ExtractorAgent) validateInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewExtractionFailure(e.Name(), ReasonEmptyInput, "cannot process empty content", nil)
	}
	if e.maxInputChars > 0 && len(text) > e.maxInputChars {
		return NewExtractionFailure(e.Name(), ReasonInputTooLong,
			fmt.Sprintf("content is %d characters, limit is %d", len(text), e.maxInputChars), nil)
	}
	return nil
}

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`Extract every verifiable claim from the content below.

For each claim return:
- "claim": the statement rewritten as a single, self-contained verifiable sentence
- "original_text": the exact portion of the content the claim comes from, copied character for character

The "original_text" value MUST appear verbatim in the content. Do not fix typos, change punctuation or merge separate sentences.

Return only a JSON object of the form {"claims": [{"claim": "...", "original_text": "..."}]} with no markdown and no commentary.

CONTENT:
%s`, text)
}
