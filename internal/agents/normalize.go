package agents

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"
)

// NormalizeClaims coerces extraction oracle output into raw claims.
//
// Accepted shapes, tried in order after markdown fences are stripped:
// an object whose "claims" field is an array, an object whose "claims"
// field is a string holding a JSON array, and a bare array. Items may be
// {claim, original_text} objects or bare strings, in which case the string
// is both the claim and its span. Every span must occur verbatim in input.
func NormalizeClaims(agent, raw, input string) ([]models.RawClaim, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil, NewExtractionFailure(agent, ReasonMalformedJSON, "empty oracle output", nil)
	}

	var top interface{}
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		block, ok := outermostJSON(cleaned)
		if !ok {
			return nil, NewExtractionFailure(agent, ReasonMalformedJSON, "oracle output is not JSON", err)
		}
		if err := json.Unmarshal([]byte(block), &top); err != nil {
			return nil, NewExtractionFailure(agent, ReasonMalformedJSON, "oracle output is not JSON", err)
		}
	}

	items, err := claimItems(agent, top)
	if err != nil {
		return nil, err
	}

	claims := make([]models.RawClaim, 0, len(items))
	for i, item := range items {
		claim, err := claimFromItem(agent, i, item)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(input, claim.OriginalText) {
			return nil, NewExtractionFailure(agent, ReasonSpanNotFound,
				fmt.Sprintf("claim %d span is not a substring of the input: %q", i, logger.Truncate(claim.OriginalText, 80)), nil)
		}
		claims = append(claims, claim)
	}

	return claims, nil
}

func claimItems(agent string, top interface{}) ([]interface{}, error) {
	switch value := top.(type) {
	case []interface{}:
		return value, nil
	case map[string]interface{}:
		field, ok := value["claims"]
		if !ok {
			return nil, NewExtractionFailure(agent, ReasonUnexpectedShape, "object has no claims field", nil)
		}
		switch claims := field.(type) {
		case []interface{}:
			return claims, nil
		case string:
			var parsed []interface{}
			if err := json.Unmarshal([]byte(cleanJSON(claims)), &parsed); err != nil {
				return nil, NewExtractionFailure(agent, ReasonStringifiedClaims, "claims string does not hold a JSON array", err)
			}
			return parsed, nil
		default:
			return nil, NewExtractionFailure(agent, ReasonUnexpectedShape,
				fmt.Sprintf("claims field has unsupported type %T", field), nil)
		}
	default:
		return nil, NewExtractionFailure(agent, ReasonUnexpectedShape,
			fmt.Sprintf("oracle output has unsupported type %T", top), nil)
	}
}

func claimFromItem(agent string, index int, item interface{}) (models.RawClaim, error) {
	var claim models.RawClaim
	switch value := item.(type) {
	case string:
		claim = models.RawClaim{Claim: value, OriginalText: value}
	case map[string]interface{}:
		claim.Claim, _ = value["claim"].(string)
		claim.OriginalText, _ = value["original_text"].(string)
		if claim.OriginalText == "" {
			claim.OriginalText, _ = value["originalText"].(string)
		}
	default:
		return claim, NewExtractionFailure(agent, ReasonUnexpectedShape,
			fmt.Sprintf("claim %d has unsupported type %T", index, item), nil)
	}

	if strings.TrimSpace(claim.Claim) == "" || strings.TrimSpace(claim.OriginalText) == "" {
		return claim, NewExtractionFailure(agent, ReasonEmptyClaim, fmt.Sprintf("claim %d is missing text", index), nil)
	}
	return claim, nil
}

// looseVerdict accepts the field variations language models produce
type looseVerdict struct {
	Claim             string          `json:"claim"`
	Assessment        string          `json:"assessment"`
	Summary           string          `json:"summary"`
	FixedOriginalText string          `json:"fixed_original_text"`
	ConfidenceScore   json.RawMessage `json:"confidence_score"`
	URLSources        json.RawMessage `json:"url_sources"`
	URLSourcesAlt     json.RawMessage `json:"urlsources"`
}

// NormalizeVerdict coerces verification oracle output into a validated verdict
func NormalizeVerdict(agent, raw, claim, originalText string, docs []models.EvidenceDocument) (models.Verdict, error) {
	cleaned := cleanJSON(raw)

	var loose looseVerdict
	if err := json.Unmarshal([]byte(cleaned), &loose); err != nil {
		block, ok := firstObject(cleaned)
		if !ok {
			return models.Verdict{}, NewVerificationFailure(agent, ReasonMalformedJSON, "verdict is not a JSON object", err)
		}
		if err := json.Unmarshal([]byte(block), &loose); err != nil {
			return models.Verdict{}, NewVerificationFailure(agent, ReasonMalformedJSON, "verdict is not a JSON object", err)
		}
	}

	assessment, err := models.ParseAssessment(loose.Assessment)
	if err != nil {
		return models.Verdict{}, NewVerificationFailure(agent, ReasonInvalidAssessment, "assessment is not one of the known values", err)
	}

	confidence, err := parseConfidence(loose.ConfidenceScore)
	if err != nil {
		return models.Verdict{}, NewVerificationFailure(agent, ReasonInvalidConfidence, "confidence_score is invalid", err)
	}

	sources := parseSources(loose.URLSources)
	if len(sources) == 0 {
		sources = parseSources(loose.URLSourcesAlt)
	}

	verdict := models.Verdict{
		Claim:             claim,
		Assessment:        assessment,
		Summary:           strings.TrimSpace(loose.Summary),
		FixedOriginalText: loose.FixedOriginalText,
		ConfidenceScore:   confidence,
		URLSources:        filterSources(sources, docs),
	}
	verdict.Normalize(originalText)

	if err := verdict.Validate(); err != nil {
		return models.Verdict{}, NewVerificationFailure(agent, ReasonInvalidVerdict, "verdict failed validation", err)
	}

	return verdict, nil
}

// parseConfidence accepts a number or a numeric string with an optional percent sign, within [0,100]
func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("confidence_score is missing")
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("confidence_score has unsupported type")
		}
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
		value, err = strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("confidence_score %q is not numeric", text)
		}
	}

	if value < 0 || value > 100 {
		return 0, fmt.Errorf("confidence_score %v is outside [0,100]", value)
	}
	return value, nil
}

func parseSources(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// filterSources keeps cited URLs present in the evidence, falling back to the first two evidence URLs
func filterSources(cited []string, docs []models.EvidenceDocument) []string {
	known := make(map[string]bool, len(docs))
	for _, doc := range docs {
		known[doc.URL] = true
	}

	seen := make(map[string]bool)
	sources := []string{}
	for _, url := range cited {
		url = strings.TrimSpace(url)
		if known[url] && !seen[url] {
			seen[url] = true
			sources = append(sources, url)
		}
	}

	if len(sources) == 0 {
		for _, doc := range docs {
			if doc.URL == "" || seen[doc.URL] {
				continue
			}
			seen[doc.URL] = true
			sources = append(sources, doc.URL)
			if len(sources) == 2 {
				break
			}
		}
	}

	return sources
}

// cleanJSON trims whitespace and strips a surrounding markdown code fence
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if !strings.HasPrefix(s, "```") {
		// A fenced block may follow some prose
		start := strings.Index(s, "```")
		if start < 0 {
			return s
		}
		s = s[start:]
	}

	// Strip opening fence line
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	// Strip closing fence and anything after it
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// firstObject returns the text from the first '{' to the last '}'
func firstObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// outermostJSON returns the widest array or object block in s
func outermostJSON(s string) (string, bool) {
	arrayStart := strings.Index(s, "[")
	objectStart := strings.Index(s, "{")
	if objectStart >= 0 && (arrayStart < 0 || objectStart < arrayStart) {
		return firstObject(s)
	}
	if arrayStart < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "]")
	if end <= arrayStart {
		return "", false
	}
	return s[arrayStart : end+1], true
}
