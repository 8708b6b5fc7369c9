package dates

import (
	"errors"
	"testing"
	"time"
)

var edt = time.FixedZone("EDT", -4*3600)

// Wednesday 2024-07-24 09:30 community time.
var refNow = time.Date(2024, 7, 24, 9, 30, 0, 0, edt)

func newTestConverter() *Converter {
	return &Converter{Location: edt, AMToPMThreshold: DefaultAMToPMThreshold}
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, edt)
}

// =============================================================================
// Convert
// =============================================================================

func TestConvert_Exact(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"7/29 at 1pm", at(2024, 7, 29, 13, 0)},
		{"7/29 1pm", at(2024, 7, 29, 13, 0)},
		{"friday at 3", at(2024, 7, 26, 15, 0)},
		{"today at 1130", at(2024, 7, 24, 11, 30)},
		{"10/21 at 9", at(2024, 10, 21, 9, 0)},
		{"tomorrow at 10:30", at(2024, 7, 25, 10, 30)},
		{"tomorrow 1:30", at(2024, 7, 25, 13, 30)},
		{"Monday 2024-07-29 13:00:00", at(2024, 7, 29, 13, 0)},
		{"2024-07-29 03:00:00", at(2024, 7, 29, 3, 0)},
		{"July 30th at noon", at(2024, 7, 30, 12, 0)},
		{"aug 2 at 4 p.m.", at(2024, 8, 2, 16, 0)},
		{"next wednesday at 2pm", at(2024, 7, 31, 14, 0)},
		{"12am tomorrow", at(2024, 7, 25, 0, 0)},
		{"7/29 3", at(2024, 7, 29, 15, 0)},
		{"tomorrow 4", at(2024, 7, 25, 16, 0)},
		{"friday 1030", at(2024, 7, 26, 10, 30)},
	}
	c := newTestConverter()
	for _, tt := range tests {
		info, ok := c.Convert(tt.in, refNow)
		if !ok {
			t.Errorf("%q: expected ok", tt.in)
			continue
		}
		if !info.IsExact() {
			t.Errorf("%q: want exact, got %s", tt.in, info.Kind)
			continue
		}
		if !info.Min.Equal(tt.want) {
			t.Errorf("%q: want %v, got %v", tt.in, tt.want, info.Min)
		}
	}
}

func TestConvert_Date(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"7/29", at(2024, 7, 29, 0, 0)},
		{"9/10", at(2024, 9, 10, 0, 0)},
		{"today", at(2024, 7, 24, 0, 0)},
		{"tomorrow", at(2024, 7, 25, 0, 0)},
		{"Friday", at(2024, 7, 26, 0, 0)},
		{"wednesday", at(2024, 7, 24, 0, 0)},
		{"next wednesday", at(2024, 7, 31, 0, 0)},
		{"monday", at(2024, 7, 29, 0, 0)},
		{"this weekend", at(2024, 7, 27, 0, 0)},
		{"October 1st", at(2024, 10, 1, 0, 0)},
		{"21st of august", at(2024, 8, 21, 0, 0)},
		{"2024-08-05", at(2024, 8, 5, 0, 0)},
		{"1/5", at(2025, 1, 5, 0, 0)},
		{"7/23/2025", at(2025, 7, 23, 0, 0)},
		{"(7/29)", at(2024, 7, 29, 0, 0)},
		{"next thursday", at(2024, 8, 1, 0, 0)},
		{"this thursday", at(2024, 7, 25, 0, 0)},
		{"asap", at(2024, 7, 24, 0, 0)},
		{"as soon as possible", at(2024, 7, 24, 0, 0)},
		{"end of month", at(2024, 7, 31, 0, 0)},
		{"early august", at(2024, 8, 1, 0, 0)},
		{"mid-august", at(2024, 8, 15, 0, 0)},
		{"late august", at(2024, 8, 31, 0, 0)},
		{"end of september", at(2024, 9, 30, 0, 0)},
		{"beginning of july", at(2024, 7, 24, 0, 0)},
		{"early june", at(2025, 6, 1, 0, 0)},
		{"this week", at(2024, 7, 25, 0, 0)},
		{"next week", at(2024, 7, 29, 0, 0)},
		{"21st of august 2025", at(2025, 8, 21, 0, 0)},
	}
	c := newTestConverter()
	for _, tt := range tests {
		info, ok := c.Convert(tt.in, refNow)
		if !ok {
			t.Errorf("%q: expected ok", tt.in)
			continue
		}
		if !info.IsDate() {
			t.Errorf("%q: want date, got %s (%s)", tt.in, info.Kind, info)
			continue
		}
		if !info.Min.Equal(tt.want) {
			t.Errorf("%q: want %v, got %v", tt.in, tt.want, info.Min)
		}
		if info.Max.Sub(info.Min) != 24*time.Hour-time.Second {
			t.Errorf("%q: date should span a whole day", tt.in)
		}
	}
}

func TestConvert_TimeOnly_ShouldResolveToNextOccurrence(t *testing.T) {
	c := newTestConverter()

	info, ok := c.Convert("1pm", refNow)
	if !ok || !info.Min.Equal(at(2024, 7, 24, 13, 0)) {
		t.Errorf("1pm: got %v ok=%v", info.Min, ok)
	}

	info, ok = c.Convert("9am", refNow)
	if !ok || !info.Min.Equal(at(2024, 7, 25, 9, 0)) {
		t.Errorf("9am already passed today, want tomorrow; got %v", info.Min)
	}

	info, ok = c.Convert("3", refNow)
	if !ok || !info.Min.Equal(at(2024, 7, 24, 15, 0)) {
		t.Errorf("bare 3 should mean 3pm; got %v", info.Min)
	}
}

func TestConvert_DayParts_ShouldReturnRange(t *testing.T) {
	c := newTestConverter()
	tests := []struct {
		in       string
		min, max time.Time
	}{
		{"tomorrow morning", at(2024, 7, 25, 0, 0), time.Date(2024, 7, 25, 11, 59, 59, 0, edt)},
		{"friday afternoon", at(2024, 7, 26, 12, 0), time.Date(2024, 7, 26, 16, 59, 59, 0, edt)},
		{"tomorrow morning or afternoon", at(2024, 7, 25, 0, 0), time.Date(2024, 7, 25, 16, 59, 59, 0, edt)},
	}
	for _, tt := range tests {
		info, ok := c.Convert(tt.in, refNow)
		if !ok || !info.IsRange() {
			t.Errorf("%q: want range, got %v ok=%v", tt.in, info.Kind, ok)
			continue
		}
		if !info.Min.Equal(tt.min) || !info.Max.Equal(tt.max) {
			t.Errorf("%q: want [%v, %v], got [%v, %v]", tt.in, tt.min, tt.max, info.Min, info.Max)
		}
	}
}

func TestConvert_TimeRanges_ShouldReturnRange(t *testing.T) {
	c := newTestConverter()
	endOf := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 23, 59, 59, 0, edt) }
	tests := []struct {
		in       string
		min, max time.Time
	}{
		{"2pm-4pm tomorrow", at(2024, 7, 25, 14, 0), at(2024, 7, 25, 16, 0)},
		{"tomorrow 2-4pm", at(2024, 7, 25, 14, 0), at(2024, 7, 25, 16, 0)},
		{"1 to 3pm on 7/29", at(2024, 7, 29, 13, 0), at(2024, 7, 29, 15, 0)},
		{"friday between 11 and 1pm", at(2024, 7, 26, 11, 0), at(2024, 7, 26, 13, 0)},
		{"monday 10:30-12", at(2024, 7, 29, 10, 30), at(2024, 7, 29, 12, 0)},
		{"before 3pm friday", at(2024, 7, 26, 0, 0), at(2024, 7, 26, 15, 0)},
		{"after 5pm tomorrow", at(2024, 7, 25, 17, 0), endOf(time.July, 25)},
		{"tomorrow after 2", at(2024, 7, 25, 14, 0), endOf(time.July, 25)},
		{"7pm or later", at(2024, 7, 24, 19, 0), endOf(time.July, 24)},
		{"7/30 at 11am or earlier", at(2024, 7, 30, 0, 0), at(2024, 7, 30, 11, 0)},
		{"before 9am", at(2024, 7, 25, 0, 0), at(2024, 7, 25, 9, 0)},
	}
	for _, tt := range tests {
		info, ok := c.Convert(tt.in, refNow)
		if !ok || !info.IsRange() {
			t.Errorf("%q: want range, got %v ok=%v", tt.in, info.Kind, ok)
			continue
		}
		if !info.Min.Equal(tt.min) || !info.Max.Equal(tt.max) {
			t.Errorf("%q: want [%v, %v], got [%v, %v]", tt.in, tt.min, tt.max, info.Min, info.Max)
		}
	}
}

func TestConvert_WhenRangeEndsBeforeItStarts_ShouldReturnFalse(t *testing.T) {
	c := newTestConverter()
	for _, in := range []string{"tomorrow 4pm-2pm", "7/29 3pm to 3pm", "friday after 13pm"} {
		if info, ok := c.Convert(in, refNow); ok {
			t.Errorf("%q: expected not ok, got %s", in, info)
		}
	}
}

func TestConvert_Unparseable_ShouldReturnFalse(t *testing.T) {
	c := newTestConverter()
	for _, in := range []string{"", "   ", "whenever works", "sometime soon", "2/30", "7/29 at 13pm", "asdf qwerty"} {
		if info, ok := c.Convert(in, refNow); ok {
			t.Errorf("%q: expected not ok, got %s", in, info)
		}
	}
}

func TestConvert_Fallback_ShouldUseDateparse(t *testing.T) {
	c := newTestConverter()
	info, ok := c.Convert("2024.08.15", refNow)
	if !ok {
		t.Fatal("expected dateparse fallback to succeed")
	}
	if !info.IsDate() || info.Min.Day() != 15 || info.Min.Month() != time.August {
		t.Errorf("unexpected fallback result %s", info)
	}
}

func TestConvert_ThresholdIsConfigurable(t *testing.T) {
	c := &Converter{Location: edt, AMToPMThreshold: 10}
	info, ok := c.Convert("friday at 9", refNow)
	if !ok || info.Min.Hour() != 21 {
		t.Errorf("threshold 10 should push 9 to 21h, got %v", info.Min)
	}
}

// =============================================================================
// Info helpers
// =============================================================================

func TestInfo_Validate(t *testing.T) {
	past := dateInfo(at(2024, 7, 20, 0, 0))
	if err := past.Validate(refNow); err == nil {
		t.Error("expected error for past date")
	}
	today := dateInfo(at(2024, 7, 24, 0, 0))
	if err := today.Validate(refNow); err != nil {
		t.Errorf("today should be valid: %v", err)
	}
}

func TestInfo_String(t *testing.T) {
	exact := Info{Min: at(2024, 7, 29, 13, 0), Max: at(2024, 7, 29, 13, 0), Kind: KindExact}
	if exact.String() != "2024-07-29 13:00" {
		t.Errorf("got %q", exact.String())
	}
	if KindRange.String() != "range" || Kind(0).String() != "unknown" {
		t.Error("unexpected kind names")
	}
}

// =============================================================================
// Locations
// =============================================================================

func TestLoadLocation_WhenUnknown_ShouldFallBack(t *testing.T) {
	orig := loadLocationFunc
	defer func() { loadLocationFunc = orig }()

	var asked []string
	loadLocationFunc = func(name string) (*time.Location, error) {
		asked = append(asked, name)
		if name == DefaultTimezone {
			return edt, nil
		}
		return nil, errors.New("unknown time zone")
	}
	if loc := LoadLocation("Mars/Olympus"); loc != edt {
		t.Errorf("want default location, got %v", loc)
	}
	if len(asked) != 2 || asked[1] != DefaultTimezone {
		t.Errorf("unexpected lookups: %v", asked)
	}
}

func TestLoadLocation_WhenNothingLoads_ShouldUseUTC(t *testing.T) {
	orig := loadLocationFunc
	defer func() { loadLocationFunc = orig }()
	loadLocationFunc = func(string) (*time.Location, error) { return nil, errors.New("no tzdata") }

	if loc := LoadLocation(""); loc != time.UTC {
		t.Errorf("want UTC, got %v", loc)
	}
}

func TestNewConverter_ShouldDefaultThreshold(t *testing.T) {
	c := NewConverter("", 0)
	if c.AMToPMThreshold != DefaultAMToPMThreshold || c.Location == nil {
		t.Errorf("unexpected converter %+v", c)
	}
}
