package meetings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned for dates, times or offsets that cannot be parsed.
var ErrInvalidTime = errors.New("invalid meeting time")

// DefaultDuration is used when a form leaves the duration blank.
const DefaultDuration = time.Hour

// FormatDateTime converts a local date (YYYY-MM-DD), time (HH:MM) and fixed
// offset ("UTC", "UTC+02:00", "UTC-05:30") to UTC start and end times. Only
// fixed offsets are supported; daylight saving rules are not applied.
func FormatDateTime(date, clock, offset string, duration time.Duration) (start, end time.Time, err error) {
	local, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTime, date, clock)
	}
	off, err := ParseOffset(offset)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	start = local.Add(-off).UTC()
	return start, start.Add(duration), nil
}

// ParseOffset parses "UTC±HH:MM", "UTC±H" or a bare "±HH:MM". The empty
// string and "UTC" are zero.
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimPrefix(s, "UTC")
	s = strings.TrimPrefix(s, "GMT")
	if s == "" {
		return 0, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("%w: offset %q", ErrInvalidTime, s)
	}
	s = s[1:]

	hh, mm, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h > 14 {
		return 0, fmt.Errorf("%w: offset hours %q", ErrInvalidTime, hh)
	}
	m := 0
	if mm != "" {
		m, err = strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return 0, fmt.Errorf("%w: offset minutes %q", ErrInvalidTime, mm)
		}
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

// ParseDuration accepts minutes ("30") or a Go duration ("1h30m"). Blank
// means DefaultDuration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDuration, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%w: duration %q", ErrInvalidTime, s)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidTime, s)
	}
	return d, nil
}
