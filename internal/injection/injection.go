// Package injection flags prospect messages that try to steer the agent away
// from its leasing persona.
package injection

import "strings"

// Default high-risk phrases (case-insensitive).
var defaultPatterns = []string{
	"ignore previous",
	"ignore all previous",
	"ignore your instructions",
	"disregard the above",
	"system prompt",
	"you are now",
	"final answer:",
	"observation:",
}

// ScanResult holds the result of a prompt-injection scan.
type ScanResult struct {
	Detected bool     // true if any high-risk pattern was found
	Patterns []string // matched phrases
}

// Scan checks text for high-risk prompt-injection phrases. The agent's own
// scratchpad markers count, since a prospect echoing them can forge a step.
func Scan(text string) ScanResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return ScanResult{}
	}
	lower := strings.ToLower(text)
	var matched []string
	for _, p := range defaultPatterns {
		if strings.Contains(lower, p) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return ScanResult{}
	}
	return ScanResult{Detected: true, Patterns: matched}
}
