package agent

import (
	"errors"
	"testing"
)

// =============================================================================
// ParseZeroShot
// =============================================================================

func TestParseZeroShot(t *testing.T) {
	tests := []struct {
		name              string
		in                string
		tool, input, final string
		done              bool
	}{
		{
			name:  "action",
			in:    "Thought: I should check availability\nAction: appointment_availability\nAction Input: 7/29",
			tool:  "appointment_availability",
			input: "7/29",
		},
		{
			name:  "quoted input and bold tool",
			in:    "Action: **appointment_scheduler**\nAction Input: \"friday at 3\"",
			tool:  "appointment_scheduler",
			input: "friday at 3",
		},
		{
			name:  "json input kept verbatim",
			in:    "Action: appointment_scheduler\nAction Input: {\"appointment_day\": \"7/29\", \"appointment_time\": \"1pm\"}",
			tool:  "appointment_scheduler",
			input: `{"appointment_day": "7/29", "appointment_time": "1pm"}`,
		},
		{
			name:  "hallucinated observation trimmed",
			in:    "Action: get_current_time\nAction Input: now\nObservation: Monday",
			tool:  "get_current_time",
			input: "now",
		},
		{
			name:  "final answer",
			in:    "Thought: I now know the final answer\nFinal Answer: Cats are allowed.",
			final: "Cats are allowed.",
			done:  true,
		},
		{
			name:  "action before final answer wins",
			in:    "Action: get_current_time\nAction Input: now\nFinal Answer: guessed",
			tool:  "get_current_time",
			input: "now",
		},
		{
			name:  "plain text is the answer",
			in:    "  We are open 9am to 6pm.  ",
			final: "We are open 9am to 6pm.",
			done:  true,
		},
		{
			name:  "thought prefix removed",
			in:    "Thought: Parking is $50 per month.",
			final: "Parking is $50 per month.",
			done:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseZeroShot(tt.in)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if d.Done != tt.done || d.Tool != tt.tool || d.Input != tt.input || d.Final != tt.final {
				t.Errorf("unexpected decision %+v", d)
			}
		})
	}
}

func TestParseZeroShot_WhenActionInputMissing_ShouldFail(t *testing.T) {
	_, err := ParseZeroShot("Thought: check\nAction: appointment_availability")
	if !errors.Is(err, ErrMissingActionInput) {
		t.Errorf("expected ErrMissingActionInput, got %v", err)
	}
}

// =============================================================================
// ParseJSONBlob
// =============================================================================

func TestParseJSONBlob(t *testing.T) {
	tests := []struct {
		name               string
		in                 string
		tool, input, final string
		done               bool
	}{
		{
			name:  "fenced tool call",
			in:    "```json\n{\"action\": \"appointment_availability\", \"action_input\": \"tomorrow\"}\n```",
			tool:  "appointment_availability",
			input: "tomorrow",
		},
		{
			name:  "object input",
			in:    "```\n{\"action\": \"appointment_scheduler\", \"action_input\": {\"appointment_day\": \"7/29\"}}\n```",
			tool:  "appointment_scheduler",
			input: `{"appointment_day": "7/29"}`,
		},
		{
			name:  "bare final answer",
			in:    `{"action": "Final Answer", "action_input": "See you Monday!"}`,
			final: "See you Monday!",
			done:  true,
		},
		{
			name:  "final answer case insensitive",
			in:    "Sure:\n```json\n{\"action\": \"final answer\", \"action_input\": \"Hi\"}\n```",
			final: "Hi",
			done:  true,
		},
		{
			name:  "null input",
			in:    `{"action": "get_current_time", "action_input": null}`,
			tool:  "get_current_time",
		},
		{
			name:  "no json is the answer",
			in:    "AI: Our office opens at 9am.",
			final: "Our office opens at 9am.",
			done:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseJSONBlob(tt.in)
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if d.Done != tt.done || d.Tool != tt.tool || d.Input != tt.input || d.Final != tt.final {
				t.Errorf("unexpected decision %+v", d)
			}
		})
	}
}

func TestParseJSONBlob_Errors(t *testing.T) {
	for _, in := range []string{
		"```json\n{\"action\": \"x\", \"action_input\": }\n```",
		"```json\n{\"action_input\": \"x\"}\n```",
		`{"action": ""}`,
	} {
		if _, err := ParseJSONBlob(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}
