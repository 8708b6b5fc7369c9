// Package dates resolves the free-text appointment days and times prospects
// write ("friday at 3", "7/29", "tomorrow morning") into concrete times in the
// community's timezone.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"
)

// DefaultTimezone is used when a community timezone is missing or unknown.
const DefaultTimezone = "America/New_York"

// DefaultAMToPMThreshold pushes bare hours below it into the afternoon:
// "at 3" means 3pm, "at 9" means 9am.
const DefaultAMToPMThreshold = 8

type Kind int

const (
	KindDate  Kind = iota + 1 // a whole day
	KindExact                 // a single instant
	KindRange                 // part of a day, e.g. "tomorrow morning"
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindExact:
		return "exact"
	case KindRange:
		return "range"
	}
	return "unknown"
}

// Info is a resolved expression encoded as a closed [Min, Max] interval.
// For KindExact Min equals Max; for KindDate it spans the whole day.
type Info struct {
	Min  time.Time
	Max  time.Time
	Kind Kind
}

func (i Info) IsDate() bool  { return i.Kind == KindDate }
func (i Info) IsExact() bool { return i.Kind == KindExact }
func (i Info) IsRange() bool { return i.Kind == KindRange }

func (i Info) String() string {
	switch i.Kind {
	case KindDate:
		return i.Min.Format("2006-01-02")
	case KindExact:
		return i.Min.Format("2006-01-02 15:04")
	case KindRange:
		return i.Min.Format("2006-01-02 15:04") + " - " + i.Max.Format("15:04")
	}
	return ""
}

// Converter resolves text relative to a reference time.
type Converter struct {
	Location        *time.Location
	AMToPMThreshold int
}

// loadLocationFunc is package-level so tests can simulate a missing tz database.
var loadLocationFunc = time.LoadLocation

// NewConverter builds a converter for the given IANA timezone. Unknown or empty
// names fall back to DefaultTimezone, and to UTC if that cannot be loaded either.
func NewConverter(timezone string, amToPMThreshold int) *Converter {
	if amToPMThreshold <= 0 {
		amToPMThreshold = DefaultAMToPMThreshold
	}
	return &Converter{Location: LoadLocation(timezone), AMToPMThreshold: amToPMThreshold}
}

// LoadLocation resolves a timezone name, falling back to DefaultTimezone.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := loadLocationFunc(name); err == nil {
			return loc
		}
	}
	if loc, err := loadLocationFunc(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}

var (
	cleanRe    = regexp.MustCompile(`[(),]`)
	spaceRe    = regexp.MustCompile(`\s+`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	monthDayRe = regexp.MustCompile(`\b(` + monthAlternation + `)\.?\s*(\d{1,2})(?:st|nd|rd|th)?\b(?:\s+(\d{4})\b)?`)
	dayMonthRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlternation + `)\b(?:\s+(\d{4})\b)?`)
	relativeRe = regexp.MustCompile(`\b(today|tonight|tomorrow|tmrw|tmr)\b`)
	weekdayRe  = regexp.MustCompile(`\b(?:(this|next)\s+)?(monday|mon|tuesday|tues|tue|wednesday|weds|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat|sunday|sun)\b`)
	weekendRe  = regexp.MustCompile(`\b(?:(this|next)\s+)?weekend\b`)
	weekRe     = regexp.MustCompile(`\b(this|next)\s+week\b`)
	asapRe     = regexp.MustCompile(`\b(?:asap|as soon as possible|immediately|immediate)\b`)
	monthEndRe = regexp.MustCompile(`\bend of (?:the )?month\b`)
	partRe     = regexp.MustCompile(`\b(?:(early|mid|late)(?:\s*/\s*(?:early|mid|late))?-?\s*|(beginning|middle|end)\s+of\s+)(` + monthAlternation + `)\b`)

	noonRe     = regexp.MustCompile(`\bnoon\b`)
	ampmRe     = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	colonRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\b`)
	atRe       = regexp.MustCompile(`(?:^|\s)(?:at|around|by|@)\s*(\d{1,4})\b`)
	bareRe     = regexp.MustCompile(`^(\d{1,4})$`)
	trailingRe = regexp.MustCompile(`(?:^|\s)(\d{1,4})$`)
	betweenRe  = regexp.MustCompile(`\b(\d{1,2}(?::\d{2})?)\s*(am|pm)?\s*(?:-|to|until|till|and)\s*(\d{1,2}(?::\d{2})?)\s*(am|pm)?\b`)
	beforeRe   = regexp.MustCompile(`\b(before|after)\s+(\d{1,2}(?::\d{2})?)\s*(am|pm)?\b`)
	orLaterRe  = regexp.MustCompile(`\b(\d{1,2}(?::\d{2})?)\s*(am|pm)?\s+(?:or|and)\s+(later|earlier)\b`)
	dayPartsRe = regexp.MustCompile(`\b(morning|afternoon|evening)\b`)
)

const monthAlternation = `january|jan|february|feb|march|mar|april|apr|may|june|jun|july|jul|august|aug|september|sept|sep|october|oct|november|nov|december|dec`

var monthNums = map[string]time.Month{
	"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
	"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
	"aug": 8, "august": 8, "sep": 9, "sept": 9, "september": 9, "oct": 10, "october": 10,
	"nov": 11, "november": 11, "dec": 12, "december": 12,
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "weds": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

type clock struct {
	hour, minute int
	explicit     bool // am/pm given or 24h notation
}

// Convert resolves text against now. The second return value is false when
// the text holds no recognisable day or time.
func (c *Converter) Convert(text string, now time.Time) (Info, bool) {
	loc := c.Location
	if loc == nil {
		loc = LoadLocation("")
	}
	ref := now.In(loc)
	today := midnight(ref)
	s := normalize(text)
	if s == "" {
		return Info{}, false
	}

	day, rest, found, valid := c.matchDay(s, today)
	if found && !valid {
		return Info{}, false
	}

	if from, to, ok, rangeValid := c.matchRange(rest); ok {
		if !rangeValid {
			return Info{}, false
		}
		base := today
		if found {
			base = day
		}
		info := Info{Min: base.Add(from), Max: base.Add(to), Kind: KindRange}
		if !found && info.Max.Before(ref) {
			info.Min, info.Max = info.Min.AddDate(0, 0, 1), info.Max.AddDate(0, 0, 1)
		}
		return info, true
	}

	if part, ok := matchDayParts(rest); ok {
		base := today
		if found {
			base = day
		}
		return Info{Min: base.Add(part[0]), Max: base.Add(part[1]), Kind: KindRange}, true
	}

	clk, hasTime, timeValid := c.matchTime(rest, found)
	if hasTime && !timeValid {
		return Info{}, false
	}

	switch {
	case found && hasTime:
		t := time.Date(day.Year(), day.Month(), day.Day(), clk.hour, clk.minute, 0, 0, loc)
		return Info{Min: t, Max: t, Kind: KindExact}, true
	case found:
		return dateInfo(day), true
	case hasTime:
		t := time.Date(today.Year(), today.Month(), today.Day(), clk.hour, clk.minute, 0, 0, loc)
		if t.Before(ref) {
			t = t.AddDate(0, 0, 1)
		}
		return Info{Min: t, Max: t, Kind: KindExact}, true
	}
	return c.fallback(s, loc)
}

func (c *Converter) matchDay(s string, today time.Time) (day time.Time, rest string, found, valid bool) {
	loc := today.Location()
	if m := asapRe.FindStringIndex(s); m != nil {
		return today, cut(s, m), true, true
	}
	if m := monthEndRe.FindStringIndex(s); m != nil {
		return time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, loc), cut(s, m), true, true
	}
	if m := isoDateRe.FindStringSubmatchIndex(s); m != nil {
		y, _ := strconv.Atoi(s[m[2]:m[3]])
		mo, _ := strconv.Atoi(s[m[4]:m[5]])
		d, _ := strconv.Atoi(s[m[6]:m[7]])
		t, ok := makeDate(y, time.Month(mo), d, loc)
		return t, cut(s, m), true, ok
	}
	if m := slashRe.FindStringSubmatchIndex(s); m != nil {
		mo, _ := strconv.Atoi(s[m[2]:m[3]])
		d, _ := strconv.Atoi(s[m[4]:m[5]])
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(s[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		t, ok := inferYear(year, time.Month(mo), d, today)
		return t, cut(s, m), true, ok
	}
	if m := partRe.FindStringSubmatchIndex(s); m != nil {
		part := ""
		if m[2] >= 0 {
			part = s[m[2]:m[3]]
		} else {
			part = s[m[4]:m[5]]
		}
		return monthPart(part, monthNums[s[m[6]:m[7]]], today), cut(s, m), true, true
	}
	if m := monthDayRe.FindStringSubmatchIndex(s); m != nil {
		mo := monthNums[s[m[2]:m[3]]]
		d, _ := strconv.Atoi(s[m[4]:m[5]])
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		t, ok := inferYear(year, mo, d, today)
		return t, cut(s, m), true, ok
	}
	if m := dayMonthRe.FindStringSubmatchIndex(s); m != nil {
		d, _ := strconv.Atoi(s[m[2]:m[3]])
		mo := monthNums[s[m[4]:m[5]]]
		year := -1
		if m[6] >= 0 {
			year, _ = strconv.Atoi(s[m[6]:m[7]])
		}
		t, ok := inferYear(year, mo, d, today)
		return t, cut(s, m), true, ok
	}
	if m := relativeRe.FindStringSubmatchIndex(s); m != nil {
		switch s[m[2]:m[3]] {
		case "today", "tonight":
			return today, cut(s, m), true, true
		default:
			return today.AddDate(0, 0, 1), cut(s, m), true, true
		}
	}
	if m := weekendRe.FindStringSubmatchIndex(s); m != nil {
		offset := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
		if today.Weekday() == time.Sunday {
			offset = 0
		}
		if m[2] >= 0 && s[m[2]:m[3]] == "next" {
			offset += 7
		}
		return today.AddDate(0, 0, offset), cut(s, m), true, true
	}
	if m := weekRe.FindStringSubmatchIndex(s); m != nil {
		// Days since Monday.
		since := (int(today.Weekday()) + 6) % 7
		offset := 7 - since
		if s[m[2]:m[3]] == "this" && since < 3 {
			offset = 1
		}
		return today.AddDate(0, 0, offset), cut(s, m), true, true
	}
	if m := weekdayRe.FindStringSubmatchIndex(s); m != nil {
		wd := weekdays[s[m[4]:m[5]]]
		offset := (int(wd) - int(today.Weekday()) + 7) % 7
		if m[2] >= 0 && s[m[2]:m[3]] == "next" {
			offset += 7
		}
		return today.AddDate(0, 0, offset), cut(s, m), true, true
	}
	return time.Time{}, s, false, false
}

func (c *Converter) matchTime(s string, haveDay bool) (clock, bool, bool) {
	if noonRe.MatchString(s) {
		return clock{hour: 12, explicit: true}, true, true
	}
	if m := ampmRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins := 0
		if m[2] != "" {
			mins, _ = strconv.Atoi(m[2])
		}
		if h < 1 || h > 12 || mins > 59 {
			return clock{}, true, false
		}
		if m[3] == "pm" && h < 12 {
			h += 12
		}
		if m[3] == "am" && h == 12 {
			h = 0
		}
		return clock{hour: h, minute: mins, explicit: true}, true, true
	}
	if m := colonRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		if h > 23 || mins > 59 {
			return clock{}, true, false
		}
		clk := clock{hour: h, minute: mins, explicit: m[3] != "" || strings.HasPrefix(m[1], "0")}
		return c.applyThreshold(clk), true, true
	}
	if m := atRe.FindStringSubmatch(s); m != nil {
		return c.hourMinute(m[1])
	}
	if !haveDay {
		if m := bareRe.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
			return c.hourMinute(m[1])
		}
	} else if m := trailingRe.FindStringSubmatch(strings.TrimSpace(s)); m != nil && !isYear(m[1]) {
		return c.hourMinute(m[1])
	}
	return clock{}, false, false
}

func isYear(digits string) bool {
	n, _ := strconv.Atoi(digits)
	return len(digits) == 4 && n >= 1900 && n < 2100
}

// matchRange finds an hour range in s ("2pm-4pm", "before 3", "7pm or
// later") and returns its bounds as offsets from midnight.
func (c *Converter) matchRange(s string) (from, to time.Duration, found, valid bool) {
	const endOfDay = 24*time.Hour - time.Second
	if m := betweenRe.FindStringSubmatch(s); m != nil {
		startAMPM, endAMPM := m[2], m[4]
		if startAMPM == "" && endAMPM != "" {
			// "2-4pm": the start shares the end's half of the day unless it
			// would come after the end ("11-1pm").
			startAMPM = endAMPM
			if hour12(m[1]) > hour12(m[3]) {
				startAMPM = "am"
			}
		}
		start, ok1 := c.clockOf(m[1], startAMPM)
		end, ok2 := c.clockOf(m[3], endAMPM)
		if !ok1 || !ok2 || !start.before(end) {
			return 0, 0, true, false
		}
		return start.offset(), end.offset(), true, true
	}
	if m := beforeRe.FindStringSubmatch(s); m != nil {
		clk, ok := c.clockOf(m[2], m[3])
		if !ok {
			return 0, 0, true, false
		}
		if m[1] == "before" {
			return 0, clk.offset(), true, true
		}
		return clk.offset(), endOfDay, true, true
	}
	if m := orLaterRe.FindStringSubmatch(s); m != nil {
		clk, ok := c.clockOf(m[1], m[2])
		if !ok {
			return 0, 0, true, false
		}
		if m[3] == "earlier" {
			return 0, clk.offset(), true, true
		}
		return clk.offset(), endOfDay, true, true
	}
	return 0, 0, false, false
}

// clockOf reads "3", "330", "3:30" with an optional am/pm.
func (c *Converter) clockOf(hm, ampm string) (clock, bool) {
	if ampm == "" {
		if h, mins, ok := strings.Cut(hm, ":"); ok {
			hour, _ := strconv.Atoi(h)
			minute, _ := strconv.Atoi(mins)
			if hour > 23 || minute > 59 {
				return clock{}, false
			}
			return c.applyThreshold(clock{hour: hour, minute: minute}), true
		}
		clk, _, ok := c.hourMinute(hm)
		return clk, ok
	}
	h, mins, _ := strings.Cut(hm, ":")
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(mins)
	if hour < 1 || hour > 12 || minute > 59 {
		return clock{}, false
	}
	if ampm == "pm" && hour < 12 {
		hour += 12
	}
	if ampm == "am" && hour == 12 {
		hour = 0
	}
	return clock{hour: hour, minute: minute, explicit: true}, true
}

func hour12(hm string) int {
	h, _, _ := strings.Cut(hm, ":")
	n, _ := strconv.Atoi(h)
	return n % 12
}

func (k clock) offset() time.Duration {
	return time.Duration(k.hour)*time.Hour + time.Duration(k.minute)*time.Minute
}

func (k clock) before(o clock) bool { return k.offset() < o.offset() }

// monthPart resolves "early", "mid" or "late" (or "beginning of", "middle
// of", "end of") a month. Months already behind us mean next year; a part of
// the current month that has passed means today.
func monthPart(part string, mo time.Month, today time.Time) time.Time {
	year := today.Year()
	if mo < today.Month() {
		year++
	}
	d := 1
	switch part {
	case "mid", "middle":
		d = 15
	case "late", "end":
		d = time.Date(year, mo+1, 0, 0, 0, 0, 0, today.Location()).Day()
	}
	t := time.Date(year, mo, d, 0, 0, 0, 0, today.Location())
	if t.Before(today) {
		return today
	}
	return t
}

// hourMinute reads compact times: "9", "12", "130" (1:30), "1130" (11:30).
func (c *Converter) hourMinute(digits string) (clock, bool, bool) {
	var h, mins int
	switch len(digits) {
	case 1, 2:
		h, _ = strconv.Atoi(digits)
	case 3:
		h, _ = strconv.Atoi(digits[:1])
		mins, _ = strconv.Atoi(digits[1:])
	default:
		h, _ = strconv.Atoi(digits[:2])
		mins, _ = strconv.Atoi(digits[2:4])
	}
	if h < 1 || h > 23 || mins > 59 {
		return clock{}, true, false
	}
	return c.applyThreshold(clock{hour: h, minute: mins}), true, true
}

func (c *Converter) applyThreshold(clk clock) clock {
	if !clk.explicit && clk.hour >= 1 && clk.hour < c.AMToPMThreshold {
		clk.hour += 12
	}
	return clk
}

func matchDayParts(s string) ([2]time.Duration, bool) {
	parts := dayPartsRe.FindAllString(s, -1)
	if len(parts) == 0 {
		return [2]time.Duration{}, false
	}
	bounds := map[string][2]time.Duration{
		"morning":   {0, 12*time.Hour - time.Second},
		"afternoon": {12 * time.Hour, 17*time.Hour - time.Second},
		"evening":   {17 * time.Hour, 21*time.Hour - time.Second},
	}
	out := bounds[parts[0]]
	for _, p := range parts[1:] {
		b := bounds[p]
		if b[0] < out[0] {
			out[0] = b[0]
		}
		if b[1] > out[1] {
			out[1] = b[1]
		}
	}
	return out, true
}

// fallback hands anything the sieve did not recognise to dateparse.
func (c *Converter) fallback(s string, loc *time.Location) (info Info, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			info, ok = Info{}, false
		}
	}()
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return Info{}, false
	}
	t = t.In(loc)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return dateInfo(midnight(t)), true
	}
	return Info{Min: t, Max: t, Kind: KindExact}, true
}

func dateInfo(day time.Time) Info {
	return Info{Min: day, Max: day.Add(24*time.Hour - time.Second), Kind: KindDate}
}

func inferYear(year int, mo time.Month, d int, today time.Time) (time.Time, bool) {
	if year > 0 {
		return makeDate(year, mo, d, today.Location())
	}
	t, ok := makeDate(today.Year(), mo, d, today.Location())
	if ok && t.Before(today) {
		t, ok = makeDate(today.Year()+1, mo, d, today.Location())
	}
	return t, ok
}

func makeDate(y int, mo time.Month, d int, loc *time.Location) (time.Time, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	if t.Month() != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func cut(s string, m []int) string {
	return strings.TrimSpace(s[:m[0]] + " " + s[m[1]:])
}

func normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.NewReplacer("a.m.", "am", "p.m.", "pm").Replace(s)
	s = cleanRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.Trim(s, " .!?")
}

// Validate reports an error when the resolved day lies before today.
func (i Info) Validate(now time.Time) error {
	ref := now.In(i.Min.Location())
	if i.Max.Before(midnight(ref)) {
		return fmt.Errorf("dates: %s is in the past", i)
	}
	return nil
}
