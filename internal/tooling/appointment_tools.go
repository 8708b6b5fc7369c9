package tooling

import (
	"context"
	"encoding/json"

	"vla/internal/domain"
)

// AvailabilityInput is the argument of the availability tool.
type AvailabilityInput struct {
	AppointmentDay string `json:"appointment_day" jsonschema_description:"The prospect's desired appointment day like 'tomorrow', 'Monday', or 10/1"`
}

// BookingInput is the argument of the scheduler and combined tools.
type BookingInput struct {
	AppointmentDay  string `json:"appointment_day" jsonschema_description:"The prospect's desired appointment day like 'tomorrow', 'Monday', or 10/1"`
	AppointmentTime string `json:"appointment_time,omitempty" jsonschema_description:"The prospect's desired appointment time like 9am, 10:30, 3pm, or 1"`
}

// CancelInput is accepted for compatibility with agents that always send an
// argument. It is ignored.
type CancelInput struct {
	Reason string `json:"reason,omitempty" jsonschema_description:"Why the prospect wants to cancel, if they said"`
}

// =============================================================================
// AppointmentAvailabilityTool
// =============================================================================

// AppointmentAvailabilityTool answers "what times are open on <day>?".
type AppointmentAvailabilityTool struct{ s *scheduler }

func NewAppointmentAvailabilityTool(cfg SchedulerConfig, api SchedulingAPI, opts ...SchedulerOption) *AppointmentAvailabilityTool {
	return &AppointmentAvailabilityTool{s: newScheduler(cfg, api, opts...)}
}

func (t *AppointmentAvailabilityTool) Name() string { return "appointment_availability" }

func (t *AppointmentAvailabilityTool) Description() string {
	return "Used for checking availability of appointments on prospect's desired appointment date. " +
		"When the prospect asks if there are tours available on some day, pass the day into this tool " +
		"to tell you the availability to return to the prospect."
}

func (t *AppointmentAvailabilityTool) Definition() string {
	return GenerateSchema(AvailabilityInput{})
}

func (t *AppointmentAvailabilityTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	var input AvailabilityInput
	if err := DecodeArgs(args, t.Definition(), &input); err != nil {
		return nil, err
	}
	info, clarify := t.s.resolve(input.AppointmentDay, "")
	if clarify != nil {
		return clarify, nil
	}
	return t.s.availability(ctx, info), nil
}

// =============================================================================
// AppointmentSchedulerTool
// =============================================================================

// AppointmentSchedulerTool books (or moves) a tour at an exact day and time.
type AppointmentSchedulerTool struct{ s *scheduler }

func NewAppointmentSchedulerTool(cfg SchedulerConfig, api SchedulingAPI, opts ...SchedulerOption) *AppointmentSchedulerTool {
	return &AppointmentSchedulerTool{s: newScheduler(cfg, api, opts...)}
}

func (t *AppointmentSchedulerTool) Name() string { return "appointment_scheduler" }

func (t *AppointmentSchedulerTool) Description() string {
	return "Used for scheduling appointments for prospects. When the prospect asks to schedule an appointment " +
		"for a specific day and time, pass their appointment day and time as parameters into this tool."
}

func (t *AppointmentSchedulerTool) Definition() string {
	return GenerateSchema(BookingInput{})
}

func (t *AppointmentSchedulerTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	var input BookingInput
	if err := DecodeArgs(args, t.Definition(), &input); err != nil {
		return nil, err
	}
	// Plain-text input arrives whole in appointment_day ("7/29 at 1pm").
	info, clarify := t.s.resolve(input.AppointmentDay, input.AppointmentTime)
	if clarify != nil {
		return clarify, nil
	}
	if !info.IsExact() {
		return Clarify(msgClarifyTime), nil
	}
	return t.s.book(ctx, info.Min), nil
}

// =============================================================================
// AppointmentSchedulerAndAvailabilityTool
// =============================================================================

// AppointmentSchedulerAndAvailabilityTool routes on what the prospect gave:
// an exact time books, a day or part of a day lists availability, anything
// else asks for clarification.
type AppointmentSchedulerAndAvailabilityTool struct{ s *scheduler }

func NewAppointmentSchedulerAndAvailabilityTool(cfg SchedulerConfig, api SchedulingAPI, opts ...SchedulerOption) *AppointmentSchedulerAndAvailabilityTool {
	return &AppointmentSchedulerAndAvailabilityTool{s: newScheduler(cfg, api, opts...)}
}

func (t *AppointmentSchedulerAndAvailabilityTool) Name() string {
	return "appointment_scheduler_availability"
}

func (t *AppointmentSchedulerAndAvailabilityTool) Description() string {
	return "Used for scheduling appointments for prospects or checking appointment availability. " +
		"When the prospect asks to schedule an appointment for a given date, pass the appointment day in as a parameter. " +
		"When they also mention their preferred appointment time, pass appointment time in as the second parameter."
}

func (t *AppointmentSchedulerAndAvailabilityTool) Definition() string {
	return GenerateSchema(BookingInput{})
}

func (t *AppointmentSchedulerAndAvailabilityTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	var input BookingInput
	if err := DecodeArgs(args, t.Definition(), &input); err != nil {
		return nil, err
	}
	info, clarify := t.s.resolve(input.AppointmentDay, input.AppointmentTime)
	if clarify != nil {
		return clarify, nil
	}
	switch {
	case info.IsExact():
		return t.s.book(ctx, info.Min), nil
	case info.IsDate(), info.IsRange():
		return t.s.availability(ctx, info), nil
	}
	return Clarify(msgClarifyBoth), nil
}

// =============================================================================
// AppointmentCancelerTool
// =============================================================================

// AppointmentCancelerTool cancels the prospect's existing tour.
type AppointmentCancelerTool struct{ s *scheduler }

func NewAppointmentCancelerTool(cfg SchedulerConfig, api SchedulingAPI, opts ...SchedulerOption) *AppointmentCancelerTool {
	return &AppointmentCancelerTool{s: newScheduler(cfg, api, opts...)}
}

func (t *AppointmentCancelerTool) Name() string { return "appointment_canceler" }

func (t *AppointmentCancelerTool) Description() string {
	return "Used for canceling existing appointments for prospects"
}

func (t *AppointmentCancelerTool) Definition() string {
	return GenerateSchema(CancelInput{})
}

func (t *AppointmentCancelerTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	var input CancelInput
	if err := DecodeArgs(args, t.Definition(), &input); err != nil {
		return nil, err
	}
	return t.s.cancel(ctx), nil
}
