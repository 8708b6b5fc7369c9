package schedapi

import (
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Appointment is an existing tour booking.
type Appointment struct {
	ID    int64  `json:"id"`
	Start string `json:"start"`
}

// Rejection classifies why the API refused a booking.
type Rejection string

const (
	RejectUnavailable  Rejection = "unavailable"
	RejectOutsideHours Rejection = "outside_hours"
	RejectConflict     Rejection = "conflict"
	RejectShortNotice  Rejection = "short_notice"
	RejectNotHandled   Rejection = "not_handled"
	RejectUnknown      Rejection = "unknown"
)

// BookingResult is the decoded outcome of a schedule or reschedule call.
// Exactly one of Start and Rejection is set.
type BookingResult struct {
	Start     string
	Rejection Rejection
	Detail    string
}

// Booked reports whether the API confirmed a start time.
func (r BookingResult) Booked() bool {
	return r.Rejection == "" && r.Start != ""
}

const (
	msgNotHandled   = "Client should not be handled by virtual agent."
	msgUnavailable  = "No appointments available at the selected time."
	msgOutsideHours = "Selected time is outside tour hours."
	msgConflict     = "Prospect has a conflicting appointment at the same time."
	msgShortNotice  = "You cannot book an appointment with such short notice"
)

type apiErrors struct {
	Error  string `json:"error"`
	Errors struct {
		Appointment struct {
			Start []string `json:"start"`
		} `json:"appointment"`
	} `json:"errors"`
}

type bookingBody struct {
	Errors      *apiErrors   `json:"errors"`
	Appointment *Appointment `json:"appointment"`
	Data        struct {
		Appointment *Appointment `json:"appointment"`
	} `json:"data"`
}

func decodeBooking(op string, resp *resty.Response) (BookingResult, error) {
	if resp.StatusCode() >= 500 {
		return BookingResult{}, &StatusError{Operation: op, Status: resp.StatusCode(), Body: resp.String()}
	}
	var body bookingBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		if resp.StatusCode() >= 300 {
			return BookingResult{}, &StatusError{Operation: op, Status: resp.StatusCode(), Body: resp.String()}
		}
		return BookingResult{Rejection: RejectUnknown, Detail: "undecodable response"}, nil
	}
	if body.Errors != nil && (body.Errors.Error != "" || len(body.Errors.Errors.Appointment.Start) > 0) {
		return classify(*body.Errors), nil
	}
	appt := body.Appointment
	if appt == nil {
		appt = body.Data.Appointment
	}
	if appt == nil || appt.Start == "" {
		return BookingResult{Rejection: RejectUnknown, Detail: "no start time in response"}, nil
	}
	return BookingResult{Start: appt.Start}, nil
}

func classify(e apiErrors) BookingResult {
	if e.Error != "" {
		if e.Error == msgNotHandled {
			return BookingResult{Rejection: RejectNotHandled, Detail: e.Error}
		}
		return BookingResult{Rejection: RejectUnknown, Detail: e.Error}
	}
	starts := e.Errors.Appointment.Start
	if len(starts) == 0 {
		return BookingResult{Rejection: RejectUnknown}
	}
	first := starts[0]
	switch {
	case first == msgUnavailable:
		return BookingResult{Rejection: RejectUnavailable, Detail: first}
	case first == msgOutsideHours:
		return BookingResult{Rejection: RejectOutsideHours, Detail: first}
	case first == msgConflict:
		return BookingResult{Rejection: RejectConflict, Detail: first}
	case strings.Contains(first, msgShortNotice):
		return BookingResult{Rejection: RejectShortNotice, Detail: first}
	}
	return BookingResult{Rejection: RejectUnknown, Detail: first}
}
