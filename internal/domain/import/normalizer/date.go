package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedDate is returned when a value matches none of the accepted
// date formats or names an impossible calendar date.
var ErrUnsupportedDate = errors.New("unsupported date format")

// dateLayouts are tried in order; the first layout that yields a real
// calendar date wins. The order is load-bearing: an 8-digit string is always
// read as day-month-year before year-month-day, a documented ambiguity
// callers rely on.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"01-02-2006", // MM-DD-YYYY
	"02012006",   // DDMMYYYY
	"20060102",   // YYYYMMDD
}

// ParseDate parses a free-text date into a calendar date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedDate, value)
}

// CanonicalDate reformats a parseable date as YYYY-MM-DD.
func CanonicalDate(value string) (string, error) {
	t, err := ParseDate(value)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}
