package reconcile

import (
	"sort"
	"strings"

	"claimcheck/internal/models"
)

// Segment is a contiguous region of the display buffer. Highlighted segments
// belong to exactly one claim; plain segments carry ClaimIndex -1.
type Segment struct {
	Start       int               `json:"start"`
	End         int               `json:"end"`
	Text        string            `json:"text"`
	Highlighted bool              `json:"highlighted"`
	ClaimIndex  int               `json:"claim_index"`
	Assessment  models.Assessment `json:"assessment,omitempty"`
}

// Locate splits buffer into plain and highlighted segments for the located claims.
// Concatenating the segment texts always reproduces buffer.
func Locate(buffer string, claims []models.ProcessedClaim) []Segment {
	segments := []Segment{}
	cursor := 0

	for _, claim := range locatedOrder(buffer, claims) {
		span := claim.OriginalText
		offset := strings.Index(buffer[cursor:], span)
		if offset < 0 {
			// overlaps an earlier span or is not in the buffer
			continue
		}
		p := cursor + offset
		if p > cursor {
			segments = append(segments, plain(buffer, cursor, p))
		}
		segments = append(segments, Segment{
			Start:       p,
			End:         p + len(span),
			Text:        span,
			Highlighted: true,
			ClaimIndex:  claim.Index,
			Assessment:  claim.Assessment(),
		})
		cursor = p + len(span)
	}

	if cursor < len(buffer) {
		segments = append(segments, plain(buffer, cursor, len(buffer)))
	}
	return segments
}

func plain(buffer string, start, end int) Segment {
	return Segment{Start: start, End: end, Text: buffer[start:end], ClaimIndex: -1}
}

// locatedOrder keeps successful, non-insufficient claims with a span and sorts
// them by first occurrence in buffer. Claims not found sort first.
func locatedOrder(buffer string, claims []models.ProcessedClaim) []models.ProcessedClaim {
	type located struct {
		claim    models.ProcessedClaim
		position int
	}

	candidates := make([]located, 0, len(claims))
	for _, claim := range claims {
		if claim.Status != models.StatusSuccess || claim.Result == nil {
			continue
		}
		if claim.Assessment() == models.Insufficient || claim.OriginalText == "" {
			continue
		}
		candidates = append(candidates, located{claim: claim, position: strings.Index(buffer, claim.OriginalText)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].position < candidates[j].position
	})

	ordered := make([]models.ProcessedClaim, len(candidates))
	for i, c := range candidates {
		ordered[i] = c.claim
	}
	return ordered
}
