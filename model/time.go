package model

import "time"

// TimeLayout is RFC3339 in UTC with a fixed nine-digit fraction.
// Fixed width keeps lexicographic order equal to chronological order,
// which the store relies on when it compares expires_at as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and any other RFC3339 rendering.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
