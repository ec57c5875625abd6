// Command ralph drives a headless, multi-agent orchestration loop: it
// feeds an external agent CLI backend a composed prompt each iteration,
// ingests the structured events the backend emits, and routes them between
// hats until a termination predicate fires.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/basket/ralph/internal/audit"
	"github.com/basket/ralph/internal/bus"
	"github.com/basket/ralph/internal/checkpoint"
	"github.com/basket/ralph/internal/config"
	"github.com/basket/ralph/internal/cronsched"
	"github.com/basket/ralph/internal/executor"
	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/history"
	"github.com/basket/ralph/internal/looprun"
	"github.com/basket/ralph/internal/notify"
	"github.com/basket/ralph/internal/otelobs"
	"github.com/basket/ralph/internal/prompt"
	"github.com/basket/ralph/internal/shared"
	"github.com/basket/ralph/internal/telemetry"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=..."
var Version = "v0.1-dev"

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:

  %s [flags]                 Run the orchestration loop once, to completion
  %s doctor [-json]          Run startup diagnostics
  %s status                  Show recent run history

FLAGS:
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "ralph.yaml", "path to the run configuration")
	promptPath := flag.String("prompt", "", "path to the prompt file (overrides event_loop.prompt_file)")
	maxIterations := flag.Uint("max-iterations", 0, "override event_loop.max_iterations (0 = use config)")
	completionPromise := flag.String("completion-promise", "", "override event_loop.completion_promise")
	dryRun := flag.Bool("dry-run", false, "load config and run diagnostics without executing a backend")
	verbose := flag.Bool("verbose", false, "log at debug level regardless of telemetry.log_level")
	flag.Usage = printUsage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args := flag.Args(); len(args) > 0 {
		switch strings.ToLower(strings.TrimSpace(args[0])) {
		case "help", "-h", "--help":
			printUsage()
			return 0
		case "doctor":
			return runDoctorCommand(ctx, *configPath, args[1:])
		case "status":
			cfg, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "config: %v\n", err)
				return 1
			}
			return runStatusCommand(ctx, cfg, args[1:])
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if *promptPath != "" {
		cfg.EventLoop.PromptFile = *promptPath
	}
	if *maxIterations > 0 {
		cfg.EventLoop.MaxIterations = uint32(*maxIterations)
	}
	if *completionPromise != "" {
		cfg.EventLoop.CompletionPromise = *completionPromise
	}

	homeDir := filepath.Dir(cfg.Core.EventsFile)
	if homeDir == "." || homeDir == "" {
		homeDir = ".agent"
	}

	logLevel := cfg.Telemetry.LogLevel
	if *verbose {
		logLevel = "debug"
	}
	logger, closer, err := telemetry.NewLogger(homeDir, logLevel, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return 1
	}
	defer closer.Close()

	traceID := shared.NewTraceID()
	ctx = shared.WithTraceID(ctx, traceID)
	logger = logger.With("trace_id", traceID)

	if err := audit.Init(homeDir); err != nil {
		logger.Error("audit init failed", "error", err)
		return 1
	}
	defer func() { _ = audit.Close() }()

	otelProvider, err := otelobs.Init(ctx, otelobs.Config{
		Enabled:     cfg.Obs.Enabled,
		Exporter:    cfg.Obs.Exporter,
		Endpoint:    cfg.Obs.Endpoint,
		ServiceName: "ralph",
		SampleRate:  1.0,
	})
	if err != nil {
		logger.Error("otel init failed", "error", err)
		return 1
	}
	defer func() { _ = otelProvider.Shutdown(context.Background()) }()

	otelMetrics, err := otelobs.NewMetrics(otelProvider.Meter)
	if err != nil {
		logger.Error("otel metrics init failed", "error", err)
		return 1
	}

	var historyStore *history.Store
	if cfg.Audit.HistoryDB != "" {
		historyStore, err = history.Open(cfg.Audit.HistoryDB)
		if err != nil {
			logger.Warn("history store unavailable", "error", err)
		} else {
			defer historyStore.Close()
		}
	}

	var notifier *notify.Telegram
	if cfg.Channels.Telegram.Token != "" {
		notifier, err = notify.NewTelegram(cfg.Channels.Telegram.Token, cfg.Channels.Telegram.ChatIDs, logger)
		if err != nil {
			logger.Warn("telegram notifier unavailable", "error", err)
		}
	}

	promptContent, err := os.ReadFile(cfg.EventLoop.PromptFile)
	if err != nil {
		logger.Error("reading prompt file failed", "path", cfg.EventLoop.PromptFile, "error", err)
		return 1
	}

	eventBus := bus.New(true)
	if !cfg.IsSingleMode() {
		registry, err := config.BuildRegistry(cfg.Hats)
		if err != nil {
			logger.Error("hat config invalid", "error", err)
			return 1
		}
		for _, h := range registry.All() {
			if h.ID == hat.Coordinator {
				continue // already registered by bus.New
			}
			if err := eventBus.Register(h); err != nil {
				logger.Error("hat registration failed", "error", err)
				return 1
			}
		}
	}

	coreCfg := prompt.CoreConfig{
		Scratchpad: cfg.Core.Scratchpad,
		SpecsDir:   cfg.Core.SpecsDir,
		EventsFile: cfg.Core.EventsFile,
		Guardrails: cfg.Core.Guardrails,
	}
	coordBuilder := prompt.NewCoordinator(cfg.EventLoop.CompletionPromise, coreCfg, eventBus.Registry(), cfg.EventLoop.StartingHat)
	instrBuilder := prompt.NewInstructionBuilder(cfg.EventLoop.CompletionPromise)

	cliExec := executor.New(executor.Config{
		Backend: cfg.CLI.Backend,
		Command: cfg.CLI.Command,
		Mode:    executor.PromptMode(cfg.CLI.PromptMode),
	})

	var checkpointHook looprun.CheckpointHook
	if cfg.EventLoop.CheckpointInterval > 0 {
		checkpointHook = checkpoint.NewGitHook(".", logger)
	}

	if *dryRun {
		fmt.Println("dry run: config loaded and every component initialized successfully")
		return 0
	}

	runID := history.NewRunID()
	runStarted := time.Now().UTC()
	if historyStore != nil {
		if err := historyStore.StartRun(ctx, runID, runStarted); err != nil {
			logger.Warn("history: record run start failed", "error", err)
		}
	}

	loopCfg := looprun.Config{
		Mode:               looprun.Mode(cfg.Mode),
		CompletionPromise:  cfg.EventLoop.CompletionPromise,
		CheckpointInterval: cfg.EventLoop.CheckpointInterval,
		EventsFilePath:     cfg.Core.EventsFile,
		Termination: looprun.TerminationConfig{
			MaxIterations:          cfg.EventLoop.MaxIterations,
			MaxRuntimeSeconds:      cfg.EventLoop.MaxRuntimeSeconds,
			MaxCostUSD:             cfg.EventLoop.MaxCostUSD,
			MaxConsecutiveFailures: cfg.EventLoop.MaxConsecutiveFailures,
		},
	}

	runLoop := func(ctx context.Context) (looprun.TerminationReason, *looprun.LoopState, error) {
		loop := looprun.New(loopCfg, eventBus, coordBuilder, instrBuilder, executorAdapter{cli: cliExec}, checkpointHook, logger)
		loop.WithObservability(otelProvider.Tracer, otelMetrics)
		loop.Initialize(string(promptContent))
		reason, err := loop.Run(ctx)
		return reason, loop.State(), err
	}

	if cfg.Schedule.Cron != "" {
		sched, err := cronsched.NewScheduler(cronsched.Config{
			Expr: cfg.Schedule.Cron,
			Run: func(runCtx context.Context) {
				reason, state, err := runLoop(runCtx)
				finishRun(ctx, historyStore, runID, reason, state, err, notifier, logger)
			},
			Logger: logger,
		})
		if err != nil {
			logger.Error("invalid schedule.cron expression", "error", err)
			return 1
		}
		if err := sched.Start(ctx); err != nil {
			logger.Error("scheduler start failed", "error", err)
			return 1
		}
		<-ctx.Done()
		sched.Stop()
		return 0
	}

	reason, state, err := runLoop(ctx)
	finishRun(ctx, historyStore, runID, reason, state, err, notifier, logger)
	if err != nil {
		return 1
	}
	return 0
}

func finishRun(ctx context.Context, store *history.Store, runID string, reason looprun.TerminationReason, state *looprun.LoopState, runErr error, notifier *notify.Telegram, logger *slog.Logger) {
	reasonStr := string(reason)
	var iteration uint32
	var cost float64
	var elapsed time.Duration
	if state != nil {
		iteration = state.Iteration
		cost = state.CumulativeCost
		elapsed = state.Elapsed(time.Now())
	}

	if runErr != nil {
		reasonStr = "error"
		logger.Error("run ended with an error", "error", runErr, "trace_id", shared.TraceID(ctx))
	} else {
		logger.Info("run ended", "reason", reasonStr, "iteration", iteration,
			"cumulative_cost", cost, "elapsed", elapsed, "trace_id", shared.TraceID(ctx))
	}
	audit.RecordTermination(reasonStr, iteration, cost, elapsed)

	if store != nil {
		if err := store.EndRun(ctx, runID, time.Now().UTC(), reasonStr); err != nil {
			logger.Error("history: record run end failed", "error", err)
		}
	}
	if notifier != nil {
		if err := notifier.Notify(notify.TerminationMessage(reasonStr, iteration, cost, elapsed)); err != nil {
			logger.Error("notify failed", "error", err)
		}
	}
}
