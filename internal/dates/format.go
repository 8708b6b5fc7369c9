package dates

import (
	"strconv"
	"strings"
	"time"
)

// Clock renders a time the way a person writes it in a text message:
// 13:00 -> "1pm", 10:30 -> "10:30am".
func Clock(t time.Time) string {
	if t.Minute() == 0 {
		return strings.ToLower(t.Format("3pm"))
	}
	return strings.ToLower(t.Format("3:04pm"))
}

// Short renders month/day without padding: "7/29".
func Short(t time.Time) string {
	return strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Day())
}

// DayShort renders weekday and month/day: "Monday 7/29".
func DayShort(t time.Time) string {
	return t.Weekday().String() + " " + Short(t)
}

// MonthDay renders a date like "March 1st".
func MonthDay(t time.Time) string {
	return t.Month().String() + " " + Ordinal(t.Day())
}

// Ordinal appends the English suffix: 1 -> "1st", 12 -> "12th", 23 -> "23rd".
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// ParseSlot reads an appointment time returned by the scheduling API. The API
// has been seen to return bare clock times as well as full timestamps.
func ParseSlot(s string, day time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	loc := day.Location()
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{"15:04:05", "15:04", "3:04pm", "3pm", "3:04 PM", "3 PM"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
		}
	}
	return time.Time{}, false
}
