package looprun

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/basket/ralph/internal/audit"
	"github.com/basket/ralph/internal/bus"
	"github.com/basket/ralph/internal/eventio"
	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/otelobs"
	"github.com/basket/ralph/internal/prompt"
	"github.com/basket/ralph/internal/topic"
)

// Mode selects whether the loop drives a single undifferentiated agent or a
// coordinator delegating to specialized hats.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Config bundles the run parameters an EventLoop needs beyond what its
// collaborators (Bus, prompt builders, Executor) already encapsulate.
type Config struct {
	Mode               Mode
	CompletionPromise  string
	CheckpointInterval uint32
	Termination        TerminationConfig
	// EventsFilePath is the durable JSONL event log hats are told to
	// append to. Empty disables the log entirely (events still route
	// purely in-memory via the bus).
	EventsFilePath string
}

// EventLoop drives iterations until a TerminationPolicy predicate fires. It
// owns LoopState and the Bus exclusively for the run's duration.
type EventLoop struct {
	cfg        Config
	bus        *bus.Bus
	state      *LoopState
	policy     *TerminationPolicy
	executor   Executor
	checkpoint CheckpointHook
	coordBuild *prompt.Coordinator
	instrBuild *prompt.InstructionBuilder
	logger     *slog.Logger
	now        func() time.Time

	eventLog *eventio.Writer
	backlog  *eventio.Reader

	tracer  trace.Tracer
	metrics *otelobs.Metrics

	singleHatPrompt string
	initialized     bool
}

// New creates an EventLoop. checkpoint may be nil to disable checkpointing.
func New(
	cfg Config,
	b *bus.Bus,
	coordBuild *prompt.Coordinator,
	instrBuild *prompt.InstructionBuilder,
	executor Executor,
	checkpoint CheckpointHook,
	logger *slog.Logger,
) *EventLoop {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	loop := &EventLoop{
		cfg:        cfg,
		bus:        b,
		state:      &LoopState{},
		policy:     NewTerminationPolicy(cfg.Termination, now),
		executor:   executor,
		checkpoint: checkpoint,
		coordBuild: coordBuild,
		instrBuild: instrBuild,
		logger:     logger,
		now:        now,
	}
	if cfg.EventsFilePath != "" {
		loop.eventLog = eventio.NewWriter(cfg.EventsFilePath)
		loop.backlog = eventio.NewReader(cfg.EventsFilePath, logger)
	}
	return loop
}

// WithObservability attaches an OpenTelemetry tracer and metric instruments
// to the loop. Both are optional and nil-safe — a loop with neither set
// records nothing beyond its ordinary slog output. Returns l for chaining
// at construction time.
func (l *EventLoop) WithObservability(tracer trace.Tracer, metrics *otelobs.Metrics) *EventLoop {
	l.tracer = tracer
	l.metrics = metrics
	return l
}

// State returns the loop's current state, for reporting.
func (l *EventLoop) State() *LoopState { return l.state }

// Initialize prepares the loop to run. basePromptContent is the raw
// contents of the configured prompt file; in single mode it is wrapped once
// into the reusable single-hat prompt. A bootstrap event is seeded to the
// bus so next-hat selection always has something pending — in single mode
// this event is never drained, since the single-hat path never calls
// Bus.TakePending.
func (l *EventLoop) Initialize(basePromptContent string) {
	l.state.StartedAt = l.now()
	if l.cfg.Mode == ModeSingle {
		l.singleHatPrompt = l.instrBuild.BuildSingleHat(basePromptContent)
		l.bus.Publish(bus.Event{Topic: topic.Topic("loop.bootstrap"), TS: l.now()})
	}
	l.initialized = true
}

// Bus exposes the underlying event bus so callers can seed events (e.g. a
// starting task) before calling Run, in multi-hat mode.
func (l *EventLoop) Bus() *bus.Bus { return l.bus }

// Run drives iterations until a termination predicate fires or ctx is
// cancelled, returning the reason the loop stopped.
func (l *EventLoop) Run(ctx context.Context) (TerminationReason, error) {
	if !l.initialized {
		return "", fmt.Errorf("looprun: Initialize must be called before Run")
	}

	if l.cfg.Mode != ModeSingle && l.backlog != nil {
		l.ingestBacklog()
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if reason, fired := l.policy.Evaluate(l.state); fired {
			return reason, nil
		}

		hatID, ok := l.bus.NextHatWithPending()
		if !ok {
			l.state.Stopped = true
			return ReasonStopped, nil
		}

		promptText, err := l.buildPrompt(hatID)
		if err != nil {
			return "", err
		}

		execCtx := ctx
		var span trace.Span
		if l.tracer != nil {
			execCtx, span = otelobs.StartIterationSpan(ctx, l.tracer,
				otelobs.AttrHatID.String(string(hatID)),
				otelobs.AttrIteration.Int64(int64(l.state.Iteration)),
			)
		}

		l.state.IterationStartedAt = l.now()
		result, err := l.executor.Execute(execCtx, promptText)
		if err != nil {
			if span != nil {
				span.End()
			}
			return "", err
		}

		if span != nil {
			span.SetAttributes(otelobs.AttrSuccess.Bool(result.Success))
			if result.Cost != nil {
				span.SetAttributes(otelobs.AttrCostUSD.Float64(*result.Cost))
			}
			span.End()
		}

		if eventio.ContainsPromise(result.Output, l.cfg.CompletionPromise) {
			return ReasonCompletionPromise, nil
		}

		prevFailures := l.state.ConsecutiveFailures
		if result.Success {
			l.state.ConsecutiveFailures = 0
		} else {
			l.state.ConsecutiveFailures++
		}
		if result.Cost != nil {
			l.state.CumulativeCost += *result.Cost
		}

		if l.metrics != nil {
			l.metrics.IterationsTotal.Add(ctx, 1)
			l.metrics.ConsecutiveFailures.Add(ctx, int64(l.state.ConsecutiveFailures)-int64(prevFailures))
			if result.Cost != nil {
				l.metrics.CumulativeCostUSD.Add(ctx, *result.Cost)
			}
		}

		if l.cfg.Mode != ModeSingle {
			l.ingestEvents(hatID, result.Output)
		}

		if l.checkpoint != nil && l.state.Iteration > 0 && l.cfg.CheckpointInterval > 0 &&
			l.state.Iteration%l.cfg.CheckpointInterval == 0 {
			ckErr := l.checkpoint.Checkpoint(ctx, l.state.Iteration)
			detail := ""
			if ckErr != nil {
				detail = ckErr.Error()
				l.logger.Warn("checkpoint failed", "iteration", l.state.Iteration, "error", ckErr)
				if l.metrics != nil {
					l.metrics.CheckpointFailures.Add(ctx, 1)
				}
			}
			audit.RecordCheckpoint(l.state.Iteration, ckErr == nil, detail)
		}

		l.state.Iteration++
	}
}

// buildPrompt composes the text handed to the executor for the given
// selected hat. In single mode the precomputed single-hat prompt is reused
// verbatim and the bus is left untouched.
func (l *EventLoop) buildPrompt(hatID hat.ID) (string, error) {
	if l.cfg.Mode == ModeSingle {
		return l.singleHatPrompt, nil
	}

	pending := l.bus.TakePending(hatID)
	context := renderContext(pending)

	if hatID == hat.Coordinator {
		return l.coordBuild.Build(context), nil
	}

	h, ok := l.bus.Registry().Get(hatID)
	if !ok {
		return "", fmt.Errorf("looprun: selected hat %q is not registered", hatID)
	}
	return l.instrBuild.BuildMultiHat(h, context), nil
}

// ingestEvents parses events out of the executor's output, stamps them with
// the executing hat as source, appends them to the durable event log (if
// configured), and publishes each to the bus in the order they were parsed.
// A log-append failure is logged and does not block routing: the bus is
// always the source of truth for the run in progress, the log is the
// after-the-fact durable record.
func (l *EventLoop) ingestEvents(sourceHat hat.ID, output string) {
	parser := eventio.NewParser(string(sourceHat))
	parsed := parser.Parse(output)
	if len(parsed) == 0 {
		return
	}

	if l.eventLog != nil {
		stamped := make([]eventio.LogEvent, len(parsed))
		for i, pe := range parsed {
			pe.TS = l.now()
			stamped[i] = pe
		}
		if err := l.eventLog.Append(stamped); err != nil {
			l.logger.Warn("event log append failed", "error", err)
		}
	}

	for _, pe := range parsed {
		ev := bus.Event{
			Topic:   topic.Topic(pe.Topic),
			Payload: pe.Payload,
			Source:  hat.ID(pe.Source),
			TS:      l.now(),
		}
		if pe.Target != "" {
			ev.Target = hat.ID(pe.Target)
		}
		l.bus.Publish(ev)
	}
}

// ingestBacklog drains any events already sitting in the durable event log
// at the start of a run — entries an operator seeded by hand, or left over
// from a prior run sharing the same home directory — and publishes them to
// the bus before the first iteration. It is a one-shot queue drain, not a
// resumption of the previous run's LoopState.
func (l *EventLoop) ingestBacklog() {
	events, err := l.backlog.ReadNew()
	if err != nil {
		l.logger.Warn("event log backlog read failed", "error", err)
		return
	}
	for _, ev := range events {
		be := bus.Event{
			Topic:   topic.Topic(ev.Topic),
			Payload: ev.Payload,
			Source:  hat.ID(ev.Source),
			TS:      l.now(),
		}
		if ev.Target != "" {
			be.Target = hat.ID(ev.Target)
		}
		l.bus.Publish(be)
	}
}

// renderContext joins pending events into the "[topic] payload" lines every
// prompt mode's events-context parameter expects.
func renderContext(events []bus.Event) string {
	if len(events) == 0 {
		return ""
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = fmt.Sprintf("[%s] %s", ev.Topic, ev.Payload)
	}
	return strings.Join(lines, "\n")
}
