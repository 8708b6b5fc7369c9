package tooling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vla/internal/dates"
	"vla/internal/domain"
	"vla/internal/schedapi"
)

// SchedulingAPI is the part of the scheduling client the appointment tools use.
// *schedapi.Client satisfies it.
type SchedulingAPI interface {
	AvailableTimes(ctx context.Context, groupID, apiKey string, day time.Time) ([]string, error)
	ClientAppointments(ctx context.Context, clientID, apiKey string) ([]schedapi.Appointment, error)
	Schedule(ctx context.Context, clientID, groupID string, start time.Time) (schedapi.BookingResult, error)
	Reschedule(ctx context.Context, appointmentID int64, groupID, apiKey string, start time.Time) (schedapi.BookingResult, error)
	Cancel(ctx context.Context, appointmentID int64, apiKey string) (bool, error)
}

// SchedulerConfig identifies the prospect and community a tool acts for.
type SchedulerConfig struct {
	ClientID    string
	GroupID     string
	CommunityID string
	// APIKey is the company key used by the v2 appointment endpoints.
	APIKey          string
	Timezone        string
	MaxTimesToShow  int
	AMToPMThreshold int
	// CallTimeout bounds each scheduling API call. Zero means no extra bound.
	CallTimeout time.Duration
}

const defaultMaxTimesToShow = 5

// Replies handed back to the model as observations.
const (
	msgClarifyTime    = "Can you please tell me about what your desired appointment time is?"
	msgClarifyDay     = "Can you please tell me about what your desired appointment day is?"
	msgClarifyBoth    = "I didn't understand the date or time you provided. Can you please rephrase it?"
	msgBadDate        = "I'm sorry, I had some difficulty understanding the date you provide. Can you please repeat it?"
	msgPastTime       = "That time has already passed. Can you provide another time?"
	msgProblem        = "It looks like there was a problem booking your tour. I will speak to another agent and get back to you."
	msgOutsideHours   = "The time you requested is outside of office hours. Does another time work for you?"
	msgSameTime       = "It looks like you already have an appointment at that time. Would you like to pick another time?"
	msgUnavailable    = "Appointment could not be booked because appointment time is unavailable. Would you like to pick another time?"
	msgShortNotice    = "Unfortunately, you can't book a tour with such short notice. Can you provide another time?"
	msgLookupFailed   = "I'm having trouble looking up tour times right now. I will check with the team and get back to you."
	msgNoAppointment  = "I'm sorry, but it appears the client does not already have an appointment to cancel."
	msgCanceled       = "Your appointment was canceled. Let me know if you want to book a new one in the future!"
	msgCancelProblem  = "I'm having issues canceling your tour. Let me speak to another agent and get back to you ASAP."
	fmtScheduled      = "Scheduled successfully for %s on %s!"
	fmtNoTimes        = "There are no available times on %s. Would you like to check another day?"
	fmtNoTimesInRange = "There are no available times on %s during that part of the day. Would you like to check another time?"
	fmtNextTimes      = "The next available appointment times on %s are %s. Would you like to schedule an appointment for one of these times?"
)

// SchedulerOption configures the shared appointment tool core.
type SchedulerOption func(*scheduler)

// WithClock sets the reference clock. Defaults to the system clock.
func WithClock(c domain.Clock) SchedulerOption {
	return func(s *scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRecorder receives a description of every completed action.
func WithRecorder(r domain.ActionRecorder) SchedulerOption {
	return func(s *scheduler) { s.recorder = r }
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// scheduler is the logic shared by the availability, booking and cancel tools.
type scheduler struct {
	cfg      SchedulerConfig
	api      SchedulingAPI
	clock    domain.Clock
	conv     *dates.Converter
	recorder domain.ActionRecorder
	logger   *slog.Logger
}

func newScheduler(cfg SchedulerConfig, api SchedulingAPI, opts ...SchedulerOption) *scheduler {
	if cfg.MaxTimesToShow <= 0 {
		cfg.MaxTimesToShow = defaultMaxTimesToShow
	}
	s := &scheduler{
		cfg:    cfg,
		api:    api,
		clock:  domain.SystemClock{},
		conv:   dates.NewConverter(cfg.Timezone, cfg.AMToPMThreshold),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("client_id", cfg.ClientID, "group_id", cfg.GroupID)
	return s
}

func (s *scheduler) now() time.Time {
	return s.clock.Now().In(s.conv.Location)
}

func (s *scheduler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *scheduler) record(ctx context.Context, action string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordAction(ctx, action); err != nil {
		s.logger.Warn("failed to record action", "action", action, "error", err)
	}
}

// resolve turns the day and time arguments into a resolved expression. The
// day is checked on its own first so an unreadable day is never silently
// replaced by "today".
func (s *scheduler) resolve(day, clock string) (dates.Info, *ToolResult) {
	day, clock = strings.TrimSpace(day), strings.TrimSpace(clock)
	now := s.now()
	if day == "" && clock == "" {
		return dates.Info{}, Clarify(msgClarifyDay)
	}
	if day != "" {
		if _, ok := s.conv.Convert(day, now); !ok {
			return dates.Info{}, Clarify(msgBadDate)
		}
	}
	text := day
	switch {
	case day == "":
		text = clock
	case clock != "":
		text = day + " at " + clock
	}
	info, ok := s.conv.Convert(text, now)
	if !ok {
		return dates.Info{}, Clarify(msgClarifyBoth)
	}
	if err := info.Validate(now); err != nil {
		s.logger.Debug("rejected past date", "input", text, "error", err)
		return dates.Info{}, Clarify(msgBadDate)
	}
	return info, nil
}

// availability lists the open slots of the day of info. Range expressions
// restrict the slots to [info.Min, info.Max].
func (s *scheduler) availability(ctx context.Context, info dates.Info) *ToolResult {
	day := time.Date(info.Min.Year(), info.Min.Month(), info.Min.Day(), 0, 0, 0, 0, info.Min.Location())
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	raw, err := s.api.AvailableTimes(callCtx, s.cfg.GroupID, s.cfg.APIKey, day)
	if err != nil {
		s.logger.Error("available times lookup failed", "day", dates.Short(day), "error", err)
		return Failed(msgLookupFailed)
	}

	now := s.now()
	var slots []string
	for _, r := range raw {
		t, ok := dates.ParseSlot(r, day)
		if !ok {
			s.logger.Debug("skipping unreadable slot", "slot", r)
			continue
		}
		if t.Before(now) || (info.IsRange() && (t.Before(info.Min) || t.After(info.Max))) {
			continue
		}
		slots = append(slots, dates.Clock(t))
		if len(slots) == s.cfg.MaxTimesToShow {
			break
		}
	}

	meta := map[string]string{"day": day.Format("2006-01-02"), "count": fmt.Sprint(len(slots))}
	if len(slots) == 0 {
		s.record(ctx, "Available appointment times returned no times")
		if info.IsRange() {
			return OK(fmt.Sprintf(fmtNoTimesInRange, dates.Short(day)), meta)
		}
		return OK(fmt.Sprintf(fmtNoTimes, dates.Short(day)), meta)
	}
	joined := strings.Join(slots, ", ")
	s.record(ctx, "Available appointment times returned "+joined)
	return OK(fmt.Sprintf(fmtNextTimes, dates.Short(day), joined), meta)
}

// existingAppointment returns the prospect's first appointment. Lookup
// failures are logged and treated as "no appointment".
func (s *scheduler) existingAppointment(ctx context.Context) (schedapi.Appointment, bool) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	appts, err := s.api.ClientAppointments(callCtx, s.cfg.ClientID, s.cfg.APIKey)
	if err != nil {
		s.logger.Warn("appointment lookup failed", "error", err)
		return schedapi.Appointment{}, false
	}
	if len(appts) == 0 {
		return schedapi.Appointment{}, false
	}
	return appts[0], true
}

// book schedules the prospect at start, moving an existing appointment when
// there is one.
func (s *scheduler) book(ctx context.Context, start time.Time) *ToolResult {
	if start.Before(s.now()) {
		return Clarify(msgPastTime)
	}

	existing, has := s.existingAppointment(ctx)
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	var (
		res schedapi.BookingResult
		err error
	)
	if has {
		s.logger.Info("rescheduling appointment", "appointment_id", existing.ID, "start", start)
		res, err = s.api.Reschedule(callCtx, existing.ID, s.cfg.GroupID, s.cfg.APIKey, start)
	} else {
		s.logger.Info("scheduling appointment", "start", start)
		res, err = s.api.Schedule(callCtx, s.cfg.ClientID, s.cfg.GroupID, start)
	}
	if err != nil {
		s.logger.Error("booking failed", "error", err)
		return Failed(msgProblem)
	}
	if !res.Booked() {
		s.logger.Info("booking rejected", "rejection", res.Rejection, "detail", res.Detail)
		return Rejected(rejectionText(res.Rejection), map[string]string{"rejection": string(res.Rejection)})
	}

	booked, ok := dates.ParseSlot(res.Start, start)
	if !ok {
		booked = start
	}
	s.record(ctx, fmt.Sprintf("Tour scheduled for %s on %s", dates.Clock(booked), dates.DayShort(booked)))
	meta := map[string]string{"start": booked.Format(time.RFC3339)}
	if has {
		meta["rescheduled"] = fmt.Sprint(existing.ID)
	}
	return OK(fmt.Sprintf(fmtScheduled, dates.Clock(booked), dates.DayShort(booked)), meta)
}

// cancel removes the prospect's first appointment.
func (s *scheduler) cancel(ctx context.Context) *ToolResult {
	existing, has := s.existingAppointment(ctx)
	if !has {
		return Rejected(msgNoAppointment, nil)
	}
	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	ok, err := s.api.Cancel(callCtx, existing.ID, s.cfg.APIKey)
	if err != nil {
		s.logger.Error("cancel failed", "appointment_id", existing.ID, "error", err)
		return Failed(msgCancelProblem)
	}
	if !ok {
		return Failed(msgCancelProblem)
	}
	s.record(ctx, "Tour canceled")
	return OK(msgCanceled, map[string]string{"canceled": fmt.Sprint(existing.ID)})
}

func rejectionText(r schedapi.Rejection) string {
	switch r {
	case schedapi.RejectOutsideHours:
		return msgOutsideHours
	case schedapi.RejectConflict:
		return msgSameTime
	case schedapi.RejectUnavailable:
		return msgUnavailable
	case schedapi.RejectShortNotice:
		return msgShortNotice
	}
	return msgProblem
}
