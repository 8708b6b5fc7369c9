package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FinalAnswerAction is the action name the JSON format uses to answer directly.
const FinalAnswerAction = "Final Answer"

// Decision is one parsed model reply: either a tool call or a final answer.
type Decision struct {
	Tool  string
	Input string
	// Final is set when the model answered the prospect.
	Final string
	Done  bool
	// Log is the raw model text, replayed in the scratchpad.
	Log string
}

// OutputParser turns raw model text into a Decision.
type OutputParser func(text string) (Decision, error)

// ErrMissingActionInput is returned when a reply names an action without input.
var ErrMissingActionInput = errors.New("invalid format: missing 'Action Input:' after 'Action:'")

var (
	actionRe     = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyRe = regexp.MustCompile(`(?m)^\s*Action\s*\d*\s*:`)
	fenceRe      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

const finalAnswerMarker = "Final Answer:"

// ParseZeroShot reads the Thought / Action / Action Input / Final Answer
// format. Text without any marker is taken as the final answer.
func ParseZeroShot(text string) (Decision, error) {
	d := Decision{Log: strings.TrimSpace(text)}
	finalIdx := strings.Index(text, finalAnswerMarker)
	loc := actionRe.FindStringSubmatchIndex(text)

	if loc != nil && (finalIdx < 0 || loc[0] < finalIdx) {
		d.Tool = cleanToolName(text[loc[2]:loc[3]])
		d.Input = cleanInput(text[loc[4]:loc[5]])
		return d, nil
	}
	if finalIdx >= 0 {
		d.Final = strings.TrimSpace(text[finalIdx+len(finalAnswerMarker):])
		d.Done = true
		return d, nil
	}
	if actionOnlyRe.MatchString(text) {
		return d, ErrMissingActionInput
	}
	d.Final = stripThought(d.Log)
	d.Done = true
	return d, nil
}

// ParseJSONBlob reads a {"action": ..., "action_input": ...} object, fenced
// or bare. Text with no JSON object is taken as the final answer.
func ParseJSONBlob(text string) (Decision, error) {
	d := Decision{Log: strings.TrimSpace(text)}
	blob, found := extractJSON(text)
	if !found {
		d.Final = stripThought(d.Log)
		d.Done = true
		return d, nil
	}
	var out struct {
		Action      string          `json:"action"`
		ActionInput json.RawMessage `json:"action_input"`
	}
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return d, fmt.Errorf("invalid format: could not parse JSON blob: %w", err)
	}
	if strings.TrimSpace(out.Action) == "" {
		return d, errors.New(`invalid format: JSON blob has no "action"`)
	}
	input := rawInput(out.ActionInput)
	if strings.EqualFold(strings.TrimSpace(out.Action), FinalAnswerAction) {
		d.Final = input
		d.Done = true
		return d, nil
	}
	d.Tool = cleanToolName(out.Action)
	d.Input = input
	return d, nil
}

func extractJSON(text string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(text); m != nil && strings.Contains(m[1], "{") {
		return strings.TrimSpace(m[1]), true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	blob := text[start : end+1]
	if !strings.Contains(blob, `"action"`) {
		return "", false
	}
	return blob, true
}

// rawInput keeps JSON objects verbatim and unquotes strings.
func rawInput(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func cleanToolName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*`\"' ")
	if i := strings.IndexAny(s, "\n("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func cleanInput(s string) string {
	for _, cut := range []string{"\nObservation", "\n" + finalAnswerMarker} {
		if i := strings.Index(s, cut); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && !strings.Contains(s[1:len(s)-1], `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}

func stripThought(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Thought:")
	s = strings.TrimPrefix(s, "AI:")
	return strings.TrimSpace(s)
}
