package main

import (
	"context"

	"github.com/basket/ralph/internal/executor"
	"github.com/basket/ralph/internal/looprun"
)

// executorAdapter satisfies looprun.Executor by delegating to a
// executor.CLIExecutor and converting its result type. Go's interface
// satisfaction is nominal, not structural: executor.ExecutionResult and
// looprun.ExecutionResult are distinct named types with the same shape, and
// internal/executor is barred from importing internal/looprun directly, so
// this conversion has to live here at the wiring layer instead of on
// CLIExecutor itself.
type executorAdapter struct {
	cli *executor.CLIExecutor
}

func (a executorAdapter) Execute(ctx context.Context, prompt string) (looprun.ExecutionResult, error) {
	res, err := a.cli.Execute(ctx, prompt)
	if err != nil {
		return looprun.ExecutionResult{}, err
	}
	return looprun.ExecutionResult{
		Output:  res.Output,
		Success: res.Success,
		Cost:    res.Cost,
	}, nil
}
