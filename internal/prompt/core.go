// Package prompt builds the text handed to the external executor each
// iteration: the coordinator's orientation/workflow prompt when no
// specialized hat is active, and a per-hat instruction wrapper when one is.
package prompt

// CoreConfig holds the paths and guardrails referenced by the coordinator's
// prompt, independent of any particular hat.
type CoreConfig struct {
	// Scratchpad is the shared-state markdown file hats read and update
	// across iterations.
	Scratchpad string
	// SpecsDir is the directory the coordinator is told to study before
	// planning.
	SpecsDir string
	// EventsFile is the JSONL log hats are told to append events to.
	EventsFile string
	// Guardrails are free-form reminders rendered as a numbered list
	// starting at 999, so they read as late additions rather than an
	// original part of the workflow.
	Guardrails []string
}

// DefaultCoreConfig returns the conventional paths used when a run's config
// does not override them.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Scratchpad: ".agent/scratchpad.md",
		SpecsDir:   "specs/",
		EventsFile: ".agent/events.jsonl",
	}
}
