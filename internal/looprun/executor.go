package looprun

import "context"

// ExecutionResult is what one executor invocation reports back to the loop.
// Cost is nil when the backend does not report per-call pricing.
type ExecutionResult struct {
	Output  string
	Success bool
	Cost    *float64
}

// Executor is the external collaborator that actually runs the agent
// subprocess. Execute must block until the agent completes; it is the sole
// suspension point in an EventLoop's iteration.
//
// Execute returns a non-nil error only for failures the loop cannot recover
// from by recording them as a failed iteration — e.g. the backend could not
// be launched at all. A non-zero exit or a recognized in-band agent error
// belongs in ExecutionResult.Success=false, not in the error return, since
// that is what lets the loop's consecutive-failure budget do its job.
type Executor interface {
	Execute(ctx context.Context, prompt string) (ExecutionResult, error)
}

// CheckpointHook is invoked after every checkpoint_interval iterations.
// Its failure is logged by the loop and never terminates the run.
type CheckpointHook interface {
	Checkpoint(ctx context.Context, iteration uint32) error
}
