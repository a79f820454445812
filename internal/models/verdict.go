package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Assessment is the judgment of a claim against its evidence
type Assessment string

const (
	Supported    Assessment = "Supported"
	Refuted      Assessment = "Refuted"
	Insufficient Assessment = "Insufficient"
)

var verdictValidate *validator.Validate

func init() {
	verdictValidate = validator.New()
}

// Keyword groups are checked in order; "not supported" must match before "supported".
var assessmentKeywords = []struct {
	assessment Assessment
	keywords   []string
}{
	{Insufficient, []string{"insufficient", "not enough", "unverifiable"}},
	{Refuted, []string{"false", "refuted", "incorrect", "unsupported", "not supported"}},
	{Supported, []string{"true", "supported", "correct"}},
}

// ParseAssessment maps an oracle's free-form assessment to one of the three literals
func ParseAssessment(raw string) (Assessment, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", fmt.Errorf("empty assessment")
	}
	for _, group := range assessmentKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(normalized, keyword) {
				return group.assessment, nil
			}
		}
	}
	return "", fmt.Errorf("unrecognized assessment %q", raw)
}

// Verdict is the structured judgment for one claim
type Verdict struct {
	Claim             string     `json:"claim" yaml:"claim" validate:"required"`
	Assessment        Assessment `json:"assessment" yaml:"assessment" validate:"oneof=Supported Refuted Insufficient"`
	Summary           string     `json:"summary" yaml:"summary"`
	FixedOriginalText string     `json:"fixed_original_text" yaml:"fixed_original_text"`
	ConfidenceScore   float64    `json:"confidence_score" yaml:"confidence_score" validate:"min=0,max=100"`
	URLSources        []string   `json:"url_sources" yaml:"url_sources"`
}

// Validate checks the verdict's field constraints
func (v Verdict) Validate() error {
	return verdictValidate.Struct(v)
}

// Normalize enforces that only a refuted verdict carries a correction
func (v *Verdict) Normalize(originalText string) {
	if v.Assessment != Refuted || strings.TrimSpace(v.FixedOriginalText) == "" {
		v.FixedOriginalText = originalText
	}
	if v.URLSources == nil {
		v.URLSources = []string{}
	}
}

// HasFix reports whether applying the verdict would change the original span
func (v Verdict) HasFix(originalText string) bool {
	return v.Assessment == Refuted && v.FixedOriginalText != originalText
}
