package pipeline

import "time"

// Stage and task outcomes reported to a Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
	OutcomeCompleted = "completed"
)

// Recorder receives measurements from pipelines and orchestrators.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// ObserveStage records how one stage of one domain settled.
	ObserveStage(stage, outcome string, elapsed time.Duration)

	// TaskStarted is called when a domain task acquires its gate permit.
	TaskStarted()

	// TaskFinished is called when a started task is finalized.
	TaskFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, string, time.Duration) {}
func (nopRecorder) TaskStarted()                               {}
func (nopRecorder) TaskFinished(string)                        {}
