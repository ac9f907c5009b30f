package core

import (
	"strings"
	"time"
)

// Date is a parsed expense timestamp. The zero value stands for a missing or
// unparseable date and serializes as null.
type Date struct {
	time.Time
	zoned bool
}

// Layouts accepted for expense dates, tried in order. Zoned layouts come first.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
		"2006/01/02",
	}
)

// ParseDate parses an expense date. ok is false when no layout matches; the
// caller keeps the record with a zero Date.
func ParseDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t, zoned: true}, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, true
		}
	}
	return Date{}, false
}

// NewDate creates a date-only value at midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is missing
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the calendar month as YYYY-MM. Keys sort chronologically.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// ISO formats the date as ISO-8601: microseconds only when present, offset
// only when the input carried one.
func (d Date) ISO() string {
	layout := "2006-01-02T15:04:05"
	if d.Nanosecond() != 0 {
		layout += ".000000"
	}
	if d.zoned {
		layout += "-07:00"
	}
	return d.Format(layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.ISO() + `"`), nil
}
