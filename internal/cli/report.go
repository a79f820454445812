package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"claimcheck/internal/models"
	"claimcheck/internal/reconcile"

	"gopkg.in/yaml.v3"
)

// Report is the printable outcome of a run
type Report struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Status    models.RunStatus `json:"status" yaml:"status"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Counts    models.RunCounts `json:"counts" yaml:"counts"`
	Claims    []ReportClaim    `json:"claims" yaml:"claims"`
	Buffer    string           `json:"buffer,omitempty" yaml:"buffer,omitempty"`
	Fixed     []int            `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// ReportClaim is one claim of a Report
type ReportClaim struct {
	Index        int                `json:"index" yaml:"index"`
	Claim        string             `json:"claim" yaml:"claim"`
	OriginalText string             `json:"original_text" yaml:"original_text"`
	Status       models.ClaimStatus `json:"status" yaml:"status"`
	Assessment   models.Assessment  `json:"assessment,omitempty" yaml:"assessment,omitempty"`
	Summary      string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Fix          string             `json:"fix,omitempty" yaml:"fix,omitempty"`
	Confidence   float64            `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Sources      []string           `json:"sources,omitempty" yaml:"sources,omitempty"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind    string             `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// NewReport flattens a run state for printing
func NewReport(state models.RunState) Report {
	report := Report{
		RunID:     state.RunID,
		Status:    state.Status,
		Error:     state.Error,
		ErrorKind: state.ErrorKind,
		Counts:    state.Counts(),
		Claims:    make([]ReportClaim, 0, len(state.Claims)),
	}
	for _, claim := range state.Claims {
		item := ReportClaim{
			Index:        claim.Index,
			Claim:        claim.Claim,
			OriginalText: claim.OriginalText,
			Status:       claim.Status,
			Error:        claim.Error,
			ErrorKind:    claim.ErrorKind,
		}
		if claim.Result != nil {
			item.Assessment = claim.Result.Assessment
			item.Summary = claim.Result.Summary
			item.Confidence = claim.Result.ConfidenceScore
			item.Sources = claim.Result.URLSources
			if claim.Result.HasFix(claim.OriginalText) {
				item.Fix = claim.Result.FixedOriginalText
			}
		}
		report.Claims = append(report.Claims, item)
	}
	return report
}

// ApplyFixes accepts every refuted claim's fix in selection order and returns
// the corrected text with the indexes of the fixed claims
func ApplyFixes(input string, claims []models.ProcessedClaim) (string, []int) {
	editor := reconcile.NewEditor(input)
	fixed := []int{}
	for {
		claim, ok := editor.Selected(claims)
		if !ok {
			break
		}
		editor.AcceptFix(claim, claims)
		fixed = append(fixed, claim.Index)
	}
	return editor.Buffer(), fixed
}

// Render writes report in the requested format
func Render(w io.Writer, report Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	case "text", "":
		return renderText(w, report)
	default:
		return fmt.Errorf("unknown output format %q (supported: text, json, yaml)", format)
	}
}

func renderText(w io.Writer, report Report) error {
	var b strings.Builder

	if report.Buffer != "" {
		b.WriteString(report.Buffer)
		if !strings.HasSuffix(report.Buffer, "\n") {
			b.WriteString("\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Run %s: %s\n", report.RunID, report.Status)
	if report.Error != "" {
		fmt.Fprintf(&b, "Error (%s): %s\n", report.ErrorKind, report.Error)
	}
	fmt.Fprintf(&b, "%d claims: %d supported, %d refuted, %d insufficient, %d failed\n",
		len(report.Claims), report.Counts.Supported, report.Counts.Refuted, report.Counts.Insufficient, report.Counts.Error)

	for _, claim := range report.Claims {
		b.WriteString("\n")
		switch claim.Status {
		case models.StatusSuccess:
			fmt.Fprintf(&b, "[%d] %s (%.0f%%) %s\n", claim.Index, claim.Assessment, claim.Confidence, claim.Claim)
			if claim.Summary != "" {
				fmt.Fprintf(&b, "    %s\n", claim.Summary)
			}
			if claim.Fix != "" {
				fmt.Fprintf(&b, "    - %s\n    + %s\n", claim.OriginalText, claim.Fix)
			}
			for _, source := range claim.Sources {
				fmt.Fprintf(&b, "    source: %s\n", source)
			}
		case models.StatusError:
			fmt.Fprintf(&b, "[%d] error %s: %s\n    %s\n", claim.Index, claim.ErrorKind, claim.Error, claim.Claim)
		default:
			fmt.Fprintf(&b, "[%d] %s %s\n", claim.Index, claim.Status, claim.Claim)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
