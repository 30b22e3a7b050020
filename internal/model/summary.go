package model

import "time"

// RunSummary is the accounting of one orchestrated run.
//
// Invariant: Completed + Cancelled == Submitted once the run has finished.
type RunSummary struct {
	// RunID identifies the run in logs and reports.
	RunID string `json:"run_id"`

	// Submitted is the number of domains handed to the orchestrator.
	Submitted int `json:"submitted"`

	// Completed is the number of domains whose result was emitted.
	Completed int `json:"completed"`

	// Cancelled is the number of domains cancelled before emitting a result.
	Cancelled int `json:"cancelled"`

	// Interrupted is true when a shutdown request ended the run early.
	Interrupted bool `json:"interrupted"`

	// Reason describes what interrupted the run (signal name or context error).
	Reason string `json:"reason,omitempty"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Elapsed returns the run duration.
func (s RunSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Balanced reports whether every submitted domain was accounted for.
func (s RunSummary) Balanced() bool {
	return s.Completed+s.Cancelled == s.Submitted
}
