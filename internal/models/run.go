package models

// RunStatus is the lifecycle position of a whole verification run
type RunStatus string

const (
	RunExtracting RunStatus = "extracting"
	RunVerifying  RunStatus = "verifying"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// RunState is the ordered claim list for one input text
type RunState struct {
	RunID     string           `json:"run_id"`
	SessionID string           `json:"session_id,omitempty"`
	Input     string           `json:"input"`
	Status    RunStatus        `json:"status"`
	Claims    []ProcessedClaim `json:"claims"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
}

// RunCounts tallies claim statuses and assessments
type RunCounts struct {
	Pending      int `json:"pending"`
	Success      int `json:"success"`
	Error        int `json:"error"`
	Supported    int `json:"supported"`
	Refuted      int `json:"refuted"`
	Insufficient int `json:"insufficient"`
}

// Clone deep-copies the state so snapshots can be handed to observers
func (r RunState) Clone() RunState {
	clone := r
	if r.Claims != nil {
		clone.Claims = make([]ProcessedClaim, len(r.Claims))
		for i, claim := range r.Claims {
			clone.Claims[i] = claim
			if claim.Result != nil {
				result := *claim.Result
				result.URLSources = append([]string(nil), claim.Result.URLSources...)
				clone.Claims[i].Result = &result
			}
		}
	}
	return clone
}

// Done reports whether every claim has reached a terminal state
func (r RunState) Done() bool {
	for i := range r.Claims {
		if !r.Claims[i].Terminal() {
			return false
		}
	}
	return true
}

// Terminal reports whether the run itself has finished
func (r RunState) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunFailed
}

// Counts tallies the run's claims
func (r RunState) Counts() RunCounts {
	var counts RunCounts
	for i := range r.Claims {
		switch r.Claims[i].Status {
		case StatusPending:
			counts.Pending++
		case StatusError:
			counts.Error++
		case StatusSuccess:
			counts.Success++
			switch r.Claims[i].Assessment() {
			case Supported:
				counts.Supported++
			case Refuted:
				counts.Refuted++
			case Insufficient:
				counts.Insufficient++
			}
		}
	}
	return counts
}
