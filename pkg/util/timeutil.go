package util

import "time"

// DateLayout is the civil date format used across request payloads.
const DateLayout = "2006-01-02"

// TruncateDay returns midnight UTC of the calendar day of t.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
