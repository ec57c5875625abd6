package eventio

import "strings"

// Parser extracts <event topic="..." target="...">payload</event> tags from
// free-form agent output. A parser carries a fixed source hat id that is
// stamped onto every event it produces.
type Parser struct {
	source string
}

// NewParser creates a parser that attributes every parsed event to source.
// An empty source leaves parsed events with no source hat.
func NewParser(source string) *Parser {
	return &Parser{source: source}
}

// Parse scans output left to right for event tags and returns them in the
// order they appear. Malformed tags are skipped, not treated as errors:
//
//   - An opening "<event " with no following ">" ends scanning of that
//     occurrence; the scanner resumes just past the unterminated "<event ".
//   - An opening tag with no topic="..." attribute is skipped; scanning
//     resumes just past the tag's ">".
//   - A topic-bearing tag with no following "</event>" closer is skipped;
//     scanning resumes just past the tag's ">".
//
// None of these conditions are fatal: Parse always returns whatever well
// formed events it found before and after the malformed occurrence.
func (p *Parser) Parse(output string) []LogEvent {
	var events []LogEvent
	remaining := output

	for {
		startIdx := strings.Index(remaining, "<event ")
		if startIdx < 0 {
			break
		}
		afterStart := remaining[startIdx:]

		tagEnd := strings.IndexByte(afterStart, '>')
		if tagEnd < 0 {
			remaining = remaining[startIdx+len("<event "):]
			continue
		}
		openingTag := afterStart[:tagEnd+1]

		topic, hasTopic := extractAttr(openingTag, "topic")
		if !hasTopic {
			remaining = remaining[startIdx+tagEnd+1:]
			continue
		}
		target, _ := extractAttr(openingTag, "target")

		contentStart := afterStart[tagEnd+1:]
		closeIdx := strings.Index(contentStart, "</event>")
		if closeIdx < 0 {
			remaining = remaining[startIdx+tagEnd+1:]
			continue
		}

		payload := strings.TrimSpace(contentStart[:closeIdx])

		events = append(events, LogEvent{
			Topic:   topic,
			Payload: payload,
			Source:  p.source,
			Target:  target,
		})

		totalConsumed := startIdx + tagEnd + 1 + closeIdx + len("</event>")
		remaining = remaining[totalConsumed:]
	}

	return events
}

// extractAttr returns the value of attr="..." within tag, if present.
func extractAttr(tag, attr string) (string, bool) {
	pattern := attr + `="`
	start := strings.Index(tag, pattern)
	if start < 0 {
		return "", false
	}
	valueStart := start + len(pattern)
	rest := tag[valueStart:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// ContainsPromise reports whether output contains the configured completion
// promise string, verbatim.
func ContainsPromise(output, promise string) bool {
	return strings.Contains(output, promise)
}
