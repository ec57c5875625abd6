package prompt

import (
	"fmt"
	"strings"

	"github.com/basket/ralph/internal/hat"
)

// InstructionBuilder wraps a raw prompt (single-hat mode) or a specialized
// hat's context (multi-hat mode) with the orchestration boilerplate the
// executor backend needs regardless of which mode is active.
type InstructionBuilder struct {
	completionPromise string
}

// NewInstructionBuilder creates a builder that stamps completionPromise into
// every prompt it wraps.
func NewInstructionBuilder(completionPromise string) *InstructionBuilder {
	return &InstructionBuilder{completionPromise: completionPromise}
}

// BuildSingleHat wraps promptContent — the raw contents of the configured
// prompt file — for a single-hat run with no hat topology at all.
func (b *InstructionBuilder) BuildSingleHat(promptContent string) string {
	return fmt.Sprintf(`ORCHESTRATION CONTEXT:
You are running within the Ralph Orchestrator loop. This system will call you
repeatedly for multiple iterations until the overall task is complete.

IMPORTANT INSTRUCTIONS:
1. Implement only ONE small, focused task per iteration
2. Mark subtasks complete as you finish them (update PROMPT.md checkboxes)
3. Commit your changes after each iteration for checkpointing
4. Use .agent/workspace/ for temporary files

WORKFLOW:
- Explore: Research and understand the codebase
- Plan: Design your implementation approach
- Implement: Write tests first (TDD), then code
- Commit: Commit changes with clear messages

AGENT SCRATCHPAD:
Before starting, check .agent/scratchpad.md for previous progress.
At iteration end, update it with:
- What you accomplished
- What remains to be done
- Any blockers or decisions made

Do NOT restart from scratch if scratchpad shows progress.

COMPLETION:
When ALL tasks in PROMPT.md are complete, output:
%s

---
ORIGINAL PROMPT:
%s`, b.completionPromise, promptContent)
}

// BuildMultiHat wraps eventsContext — the rendered text of h's pending
// events — with the instructions that tell the executor which persona it is
// running as for this iteration.
func (b *InstructionBuilder) BuildMultiHat(h hat.Hat, eventsContext string) string {
	var s strings.Builder

	s.WriteString("ORCHESTRATION CONTEXT:\n")
	name := h.Name
	if name == "" {
		name = string(h.ID)
	}
	fmt.Fprintf(&s, "You are the %s agent in a multi-agent system.\n\n", name)

	if strings.TrimSpace(h.Instructions) != "" {
		s.WriteString("YOUR ROLE:\n")
		s.WriteString(h.Instructions)
		s.WriteString("\n\n")
	}

	s.WriteString("EVENT COMMUNICATION:\n")
	s.WriteString("Use <event> tags to communicate with other agents:\n")
	s.WriteString(`<event topic="your.topic">Your message</event>`)
	s.WriteString("\n\n")

	if len(h.Publishes) > 0 {
		s.WriteString("You typically publish to: ")
		s.WriteString(joinTopics(h.Publishes))
		s.WriteString("\n\n")
	}

	fmt.Fprintf(&s, "COMPLETION:\nWhen the overall task is complete, output:\n%s\n\n", b.completionPromise)

	s.WriteString("---\nINCOMING EVENTS:\n")
	s.WriteString(eventsContext)

	return s.String()
}
