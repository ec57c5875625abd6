// Package config loads and validates the orchestrator's run configuration:
// event loop bounds, the coordinator's core prompt material, the CLI
// backend, and the hat topology.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration, unmarshaled from YAML and then
// normalized with the package's defaults.
type Config struct {
	Mode       string               `yaml:"mode"`
	EventLoop  EventLoopConfig      `yaml:"event_loop"`
	Core       CoreConfig           `yaml:"core"`
	CLI        CLIConfig            `yaml:"cli"`
	Hats       map[string]HatConfig `yaml:"hats"`
	Telemetry  TelemetryConfig      `yaml:"telemetry"`
	Obs        ObservabilityConfig  `yaml:"observability"`
	Channels   ChannelsConfig       `yaml:"channels"`
	Audit      AuditConfig          `yaml:"audit"`
	Schedule   ScheduleConfig       `yaml:"schedule"`
}

// EventLoopConfig bounds a run and names its completion sentinel.
type EventLoopConfig struct {
	PromptFile             string   `yaml:"prompt_file"`
	CompletionPromise      string   `yaml:"completion_promise"`
	MaxIterations          uint32   `yaml:"max_iterations"`
	MaxRuntimeSeconds      uint64   `yaml:"max_runtime_seconds"`
	MaxCostUSD             *float64 `yaml:"max_cost_usd"`
	MaxConsecutiveFailures uint32   `yaml:"max_consecutive_failures"`
	CheckpointInterval     uint32   `yaml:"checkpoint_interval"`
	StartingHat            string   `yaml:"starting_hat"`
}

// CoreConfig holds the paths and guardrails the coordinator's prompt reads.
type CoreConfig struct {
	Scratchpad string   `yaml:"scratchpad"`
	SpecsDir   string   `yaml:"specs_dir"`
	EventsFile string   `yaml:"events_file"`
	Guardrails []string `yaml:"guardrails"`
}

// CLIConfig names the executor backend and how prompts are handed to it.
type CLIConfig struct {
	Backend    string `yaml:"backend"`
	Command    string `yaml:"command"`
	PromptMode string `yaml:"prompt_mode"`
}

// HatConfig is one entry of the hats map: a persona definition before it is
// resolved into a hat.Hat and validated against the registry.
type HatConfig struct {
	Name          string   `yaml:"name" json:"name"`
	Subscriptions []string `yaml:"subscriptions" json:"subscriptions"`
	Publishes     []string `yaml:"publishes" json:"publishes"`
	Instructions  string   `yaml:"instructions" json:"instructions"`
}

// TelemetryConfig configures structured logging.
type TelemetryConfig struct {
	LogLevel string `yaml:"log_level"`
}

// ObservabilityConfig configures OpenTelemetry tracing/metrics export.
type ObservabilityConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "otlp-http" | "stdout" | "none"
	Endpoint string `yaml:"endpoint"`
}

// ChannelsConfig configures operator-facing notification channels.
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig configures the Telegram push-notification channel.
type TelegramConfig struct {
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}

// AuditConfig configures the run audit journal.
type AuditConfig struct {
	HistoryDB string `yaml:"history_db"`
}

// ScheduleConfig configures the cron daemon mode.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// Default returns a Config populated with the documented defaults, as if
// loaded from an empty YAML document.
func Default() Config {
	cfg := Config{}
	normalize(&cfg)
	return cfg
}

// Load reads and parses the YAML file at path, then applies defaults for
// any field left unset. A missing file is not an error: Load returns
// Default() in that case, mirroring the CLI's "config not found, using
// defaults" behavior.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			normalize(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	normalize(&cfg)

	if err := validateHats(cfg.Hats); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// IsSingleMode reports whether the run operates without a hat topology.
func (c Config) IsSingleMode() bool {
	return c.Mode == "single"
}

func normalize(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "single"
	}
	if cfg.EventLoop.PromptFile == "" {
		cfg.EventLoop.PromptFile = "PROMPT.md"
	}
	if cfg.EventLoop.CompletionPromise == "" {
		cfg.EventLoop.CompletionPromise = "LOOP_COMPLETE"
	}
	if cfg.EventLoop.MaxIterations == 0 {
		cfg.EventLoop.MaxIterations = 100
	}
	if cfg.EventLoop.MaxRuntimeSeconds == 0 {
		cfg.EventLoop.MaxRuntimeSeconds = 14400
	}
	if cfg.EventLoop.MaxConsecutiveFailures == 0 {
		cfg.EventLoop.MaxConsecutiveFailures = 5
	}
	if cfg.EventLoop.CheckpointInterval == 0 {
		cfg.EventLoop.CheckpointInterval = 5
	}
	if cfg.Core.Scratchpad == "" {
		cfg.Core.Scratchpad = ".agent/scratchpad.md"
	}
	if cfg.Core.SpecsDir == "" {
		cfg.Core.SpecsDir = "specs/"
	}
	if cfg.Core.EventsFile == "" {
		cfg.Core.EventsFile = ".agent/events.jsonl"
	}
	if cfg.CLI.Backend == "" {
		cfg.CLI.Backend = "claude"
	}
	if cfg.CLI.PromptMode == "" {
		cfg.CLI.PromptMode = "arg"
	}
	if cfg.Telemetry.LogLevel == "" {
		cfg.Telemetry.LogLevel = "info"
	}
	if cfg.Obs.Exporter == "" {
		cfg.Obs.Exporter = "otlp-http"
	}
}

// validateHats rejects a config whose hat map cannot be turned into a valid
// registry: a blank name, or (redundantly, since map keys are already
// unique) a duplicate id.
func validateHats(hats map[string]HatConfig) error {
	seen := make(map[string]bool, len(hats))
	for id, h := range hats {
		if id == "" {
			return fmt.Errorf("config: hat entry has empty id")
		}
		if id == "ralph" {
			return fmt.Errorf("config: hat id %q is reserved for the coordinator", id)
		}
		if seen[id] {
			return fmt.Errorf("config: duplicate hat id %q", id)
		}
		seen[id] = true
		if h.Name == "" {
			return fmt.Errorf("config: hat %q missing required field \"name\"", id)
		}
	}
	return nil
}
