package reconcile

import (
	"strings"
	"sync"

	"claimcheck/internal/models"
)

const (
	selectionInitial = -2
	selectionNone    = -1
)

// Editor owns the mutable display buffer of one run and the selected-claim state
type Editor struct {
	mu       sync.Mutex
	original string
	buffer   string
	fixed    map[int]bool
	selected int
}

// NewEditor starts a display buffer from the original input
func NewEditor(input string) *Editor {
	return &Editor{
		original: input,
		buffer:   input,
		fixed:    make(map[int]bool),
		selected: selectionInitial,
	}
}

// Original returns the immutable input text
func (e *Editor) Original() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.original
}

// Buffer returns the current display buffer
func (e *Editor) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer
}

// Segments renders the current buffer for claims
func (e *Editor) Segments(claims []models.ProcessedClaim) []Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Locate(e.buffer, claims)
}

// Fixed reports whether the claim at index has had its fix accepted
func (e *Editor) Fixed(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fixed[index]
}

// Selected returns the claim whose fix is offered next. Before any fix it is the
// first refuted claim in located order; afterwards it follows AcceptFix.
func (e *Editor) Selected(claims []models.ProcessedClaim) (models.ProcessedClaim, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.selected {
	case selectionNone:
		return models.ProcessedClaim{}, false
	case selectionInitial:
		for _, claim := range e.refutedOrder(claims) {
			if !e.fixed[claim.Index] {
				return claim, true
			}
		}
		return models.ProcessedClaim{}, false
	}

	for _, claim := range claims {
		if claim.Index == e.selected && claim.Assessment() == models.Refuted && !e.fixed[claim.Index] {
			return claim, true
		}
	}
	return models.ProcessedClaim{}, false
}

// AcceptFix replaces the first occurrence of the claim's original text with its
// fixed text and advances the selection to the next unfixed refuted claim after
// it, or to the first unfixed refuted claim when the accepted claim is not
// refuted. It reports whether the buffer changed.
func (e *Editor) AcceptFix(claim models.ProcessedClaim, claims []models.ProcessedClaim) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if claim.Status != models.StatusSuccess || claim.Result == nil {
		return false
	}

	order := e.refutedOrder(claims)

	changed := false
	if claim.OriginalText != "" && strings.Contains(e.buffer, claim.OriginalText) {
		updated := strings.Replace(e.buffer, claim.OriginalText, claim.Result.FixedOriginalText, 1)
		changed = updated != e.buffer
		e.buffer = updated
	}
	e.fixed[claim.Index] = true

	// a claim outside the refuted order restarts the search from the first refuted claim
	passed := !containsClaim(order, claim.Index)
	e.selected = selectionNone
	for _, candidate := range order {
		if candidate.Index == claim.Index {
			passed = true
			continue
		}
		if passed && !e.fixed[candidate.Index] {
			e.selected = candidate.Index
			break
		}
	}

	return changed
}

// Reset discards all fixes and restarts from input
func (e *Editor) Reset(input string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.original = input
	e.buffer = input
	e.fixed = make(map[int]bool)
	e.selected = selectionInitial
}

func (e *Editor) refutedOrder(claims []models.ProcessedClaim) []models.ProcessedClaim {
	var refuted []models.ProcessedClaim
	for _, claim := range locatedOrder(e.buffer, claims) {
		if claim.Assessment() == models.Refuted {
			refuted = append(refuted, claim)
		}
	}
	return refuted
}

func containsClaim(claims []models.ProcessedClaim, index int) bool {
	for _, claim := range claims {
		if claim.Index == index {
			return true
		}
	}
	return false
}
