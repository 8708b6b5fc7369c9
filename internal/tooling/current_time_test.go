package tooling

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vla/internal/domain"
)

func TestCurrentTimeTool_Call_ShouldFormatInjectedClockInTimezone(t *testing.T) {
	clock := domain.FixedClock{T: time.Date(2024, 7, 24, 13, 30, 5, 0, time.UTC)}
	tool := NewCurrentTimeTool(clock, "America/New_York")

	res, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Data != "Wednesday 2024-07-24 09:30:05" {
		t.Errorf("unexpected time %q", res.Data)
	}
	if !res.OK() {
		t.Errorf("expected ok status, got %s", res.Status)
	}
}

func TestCurrentTimeTool_Call_ShouldAcceptEmptyAndIgnoredArgs(t *testing.T) {
	tool := NewCurrentTimeTool(domain.FixedClock{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, "UTC")
	for _, args := range []string{"", `{}`, `{"query":"what time is it"}`} {
		res, err := tool.Call(context.Background(), json.RawMessage(args))
		if err != nil {
			t.Errorf("%q: unexpected error %v", args, err)
			continue
		}
		if res.Data != "Monday 2024-01-01 00:00:00" {
			t.Errorf("%q: unexpected time %q", args, res.Data)
		}
	}
}

func TestCurrentTimeTool_Call_ShouldRejectMalformedArgs(t *testing.T) {
	tool := NewCurrentTimeTool(nil, "UTC")
	if _, err := tool.Call(context.Background(), json.RawMessage(`[1,2]`)); err == nil {
		t.Error("expected validation error for non-object args")
	}
}

func TestCurrentTimeTool_Definition_ShouldHaveNoRequiredArgs(t *testing.T) {
	tool := NewCurrentTimeTool(nil, "")
	if tool.Name() != "get_current_time" {
		t.Errorf("unexpected name %q", tool.Name())
	}
	for _, a := range ArgsFromSchema(tool.Definition()) {
		if a.Required {
			t.Errorf("arg %s should be optional", a.Name)
		}
	}
}
