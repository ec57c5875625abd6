package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/basket/ralph/internal/hat"
	"github.com/basket/ralph/internal/topic"
)

// Coordinator builds the prompt for the always-present coordinator hat
// ("ralph"). It is the one hat that never receives a per-hat instruction
// wrapper: its prompt IS the orientation, workflow, and (in multi-hat mode)
// delegation instructions.
type Coordinator struct {
	completionPromise string
	core              CoreConfig
	registry          *hat.Registry
	startingEvent     string // empty means unset
}

// NewCoordinator creates a coordinator prompt builder. startingEvent, if
// non-empty, is the topic the coordinator is told to publish to hand off to
// the hat workflow, and enables the fast path when the scratchpad does not
// yet exist.
func NewCoordinator(completionPromise string, core CoreConfig, registry *hat.Registry, startingEvent string) *Coordinator {
	return &Coordinator{
		completionPromise: completionPromise,
		core:              core,
		registry:          registry,
		startingEvent:     startingEvent,
	}
}

// hasHats reports whether any specialized (non-coordinator) hat is
// registered. The coordinator's own "*" subscription in the registry never
// counts toward this.
func (c *Coordinator) hasHats() bool {
	return c.registry != nil && c.registry.NonCoordinatorCount() > 0
}

// specializedHats returns every registered hat except the coordinator
// itself, in registration order.
func (c *Coordinator) specializedHats() []hat.Hat {
	if c.registry == nil {
		return nil
	}
	var out []hat.Hat
	for _, h := range c.registry.All() {
		if h.ID != hat.Coordinator {
			out = append(out, h)
		}
	}
	return out
}

// isFreshStart reports whether the fast path applies: a starting event is
// configured and the scratchpad file does not yet exist on disk.
func (c *Coordinator) isFreshStart() bool {
	if c.startingEvent == "" {
		return false
	}
	_, err := os.Stat(c.core.Scratchpad)
	return os.IsNotExist(err)
}

// Build assembles the coordinator's full prompt. context is the rendered
// text of any pending events for the coordinator; an empty or
// whitespace-only context omits the PENDING EVENTS section entirely.
func (c *Coordinator) Build(context string) string {
	var b strings.Builder
	b.WriteString(c.corePrompt())

	if strings.TrimSpace(context) != "" {
		b.WriteString("## PENDING EVENTS\n\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}

	b.WriteString(c.workflowSection())

	if c.hasHats() {
		b.WriteString(c.hatsSection())
	}

	b.WriteString(c.eventWritingSection())
	b.WriteString(c.doneSection())

	return b.String()
}

func (c *Coordinator) corePrompt() string {
	var guardrails strings.Builder
	for i, g := range c.core.Guardrails {
		if i > 0 {
			guardrails.WriteByte('\n')
		}
		fmt.Fprintf(&guardrails, "%d. %s", 999+i, g)
	}

	return fmt.Sprintf(`I'm Ralph. Fresh context each iteration.

### 0a. ORIENTATION
Study `+"`%s`"+` to understand requirements.
Don't assume features aren't implemented—search first.

### 0b. SCRATCHPAD
Study `+"`%s`"+`. It's shared state. It's memory.

Task markers:
- `+"`[ ]`"+` pending
- `+"`[x]`"+` done
- `+"`[~]`"+` cancelled (with reason)

### GUARDRAILS
%s

`, c.core.SpecsDir, c.core.Scratchpad, guardrails.String())
}

func (c *Coordinator) workflowSection() string {
	if c.hasHats() {
		if c.isFreshStart() {
			return fmt.Sprintf(`## WORKFLOW

**FAST PATH**: Publish `+"`%s`"+` immediately to start the hat workflow.
Do not plan or analyze — delegate now.

`, c.startingEvent)
		}

		return fmt.Sprintf(`## WORKFLOW

### 1. PLAN
Update `+"`%s`"+` with prioritized tasks.

### 2. DELEGATE
Publish ONE event to hand off to specialized hats.

**CRITICAL: STOP after publishing the event.** A new iteration will start
with fresh context to handle the work. Do NOT continue working in this
iteration — let the next iteration handle the event with the appropriate
hat persona.

`, c.core.Scratchpad)
	}

	return fmt.Sprintf(`## WORKFLOW

### 1. Study the prompt.
Study, explore, and research what needs to be done. Use parallel subagents (up to 10) for searches.

### 2. PLAN
Update `+"`%s`"+` with prioritized tasks.

### 3. IMPLEMENT
Pick ONE task. Only 1 subagent for build/tests.

### 4. COMMIT
Capture the why, not just the what. Mark `+"`[x]`"+` in scratchpad.

### 5. REPEAT
Until all tasks `+"`[x]`"+` or `+"`[~]`"+`.

`, c.core.Scratchpad)
}

func (c *Coordinator) hatsSection() string {
	var b strings.Builder
	b.WriteString("## HATS\n\nDelegate via events.\n\n")

	if c.startingEvent != "" {
		fmt.Fprintf(&b, "**After coordination, publish `%s` to start the workflow.**\n\n", c.startingEvent)
	}

	b.WriteString("| Hat | Triggers On | Publishes |\n")
	b.WriteString("|-----|-------------|----------|\n")

	hats := c.specializedHats()
	for _, h := range hats {
		subscribes := joinPatterns(h.Subscriptions)
		publishes := joinTopics(h.Publishes)
		name := h.Name
		if name == "" {
			name = string(h.ID)
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", name, subscribes, publishes)
	}
	b.WriteByte('\n')

	for _, h := range hats {
		if strings.TrimSpace(h.Instructions) == "" {
			continue
		}
		name := h.Name
		if name == "" {
			name = string(h.ID)
		}
		fmt.Fprintf(&b, "### %s Instructions\n\n", name)
		b.WriteString(h.Instructions)
		if !strings.HasSuffix(h.Instructions, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func (c *Coordinator) eventWritingSection() string {
	eventsFile := c.core.EventsFile
	if eventsFile == "" {
		eventsFile = DefaultCoreConfig().EventsFile
	}
	return "## EVENT WRITING\n\n" +
		"Use <event> tags in your output to hand off to another hat:\n" +
		`<event topic="build.task" target="impl">Your message</event>` + "\n\n" +
		fmt.Sprintf("Every event you emit this way is appended to `%s` as one JSON "+
			"line (`{\"topic\":...,\"payload\":...,\"source\":...,\"ts\":...}`) for the "+
			"durable record; you do not write to that file directly.\n\n", eventsFile)
}

func (c *Coordinator) doneSection() string {
	return fmt.Sprintf("## DONE\n\nOutput %s when all tasks complete.\n", c.completionPromise)
}

func joinPatterns(patterns []topic.Pattern) string {
	parts := make([]string, len(patterns))
	for i, p := range patterns {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func joinTopics(topics []topic.Topic) string {
	parts := make([]string, len(topics))
	for i, tp := range topics {
		parts[i] = tp.String()
	}
	return strings.Join(parts, ", ")
}
