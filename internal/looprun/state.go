// Package looprun implements the iteration state machine that drives the
// external agent executor through bounded iterations: termination
// predicates, next-hat selection, prompt assembly, output ingestion, and
// checkpoint triggering.
package looprun

import "time"

// LoopState is the mutable state an EventLoop owns for the duration of a
// run. Iteration is a pre-increment counter of completed iterations: it is
// bumped only after an iteration's ingest and checkpoint steps finish, so a
// run that terminates mid-iteration (e.g. on the completion promise) leaves
// Iteration reporting the count of iterations that fully completed before
// it, not the one in flight.
type LoopState struct {
	Iteration           uint32
	StartedAt           time.Time
	IterationStartedAt  time.Time
	ConsecutiveFailures uint32
	CumulativeCost      float64
	LastEventSummary    string
	Stopped             bool
}

// Elapsed returns the wall-clock duration since StartedAt, as of now.
func (s *LoopState) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// TerminationReason identifies why an EventLoop stopped running.
type TerminationReason string

const (
	ReasonCompletionPromise   TerminationReason = "completion_promise"
	ReasonMaxIterations       TerminationReason = "max_iterations"
	ReasonMaxRuntime          TerminationReason = "max_runtime"
	ReasonMaxCost             TerminationReason = "max_cost"
	ReasonConsecutiveFailures TerminationReason = "consecutive_failures"
	ReasonStopped             TerminationReason = "stopped"
)
