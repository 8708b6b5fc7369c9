package tooling

import (
	"context"
	"encoding/json"

	"vla/internal/dates"
	"vla/internal/domain"
)

// CurrentTimeLayout is the format the model is told to expect.
const CurrentTimeLayout = "Monday 2006-01-02 15:04:05"

// CurrentTimeInput is accepted for compatibility with agents that always send
// an argument. It is ignored.
type CurrentTimeInput struct {
	Query string `json:"query,omitempty" jsonschema_description:"Not used. Leave empty."`
}

// CurrentTimeTool reports the current time in the community's timezone.
type CurrentTimeTool struct {
	clock    domain.Clock
	timezone string
}

// NewCurrentTimeTool builds the tool. A nil clock uses the system clock.
func NewCurrentTimeTool(clock domain.Clock, timezone string) *CurrentTimeTool {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &CurrentTimeTool{clock: clock, timezone: timezone}
}

func (t *CurrentTimeTool) Name() string { return "get_current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Used for getting current time in 'day of week YYYY-MM-DD HH:MM:SS' format. " +
		"Use this every time an appointment time is mentioned to get the context"
}

func (t *CurrentTimeTool) Definition() string {
	return GenerateSchema(CurrentTimeInput{})
}

// Call ignores its arguments apart from rejecting malformed JSON objects.
func (t *CurrentTimeTool) Call(_ context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	var input CurrentTimeInput
	if err := DecodeArgs(args, t.Definition(), &input); err != nil {
		return nil, err
	}
	now := t.clock.Now().In(dates.LoadLocation(t.timezone))
	return OK(now.Format(CurrentTimeLayout), nil), nil
}
