package ical

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDateTime = errors.New("invalid local date-time")

// LocalDateTime is a wall-clock date and time with no zone attached.
type LocalDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// ParseLocalDateTime parses "YYYY-MM-DD" or "YYYY-MM-DD HH:MM". A "T" separator
// and a trailing ":SS" are tolerated; seconds are discarded.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LocalDateTime{}, fmt.Errorf("%w: empty value", ErrInvalidDateTime)
	}

	datePart, timePart := s, ""
	if i := strings.IndexAny(s, " T"); i >= 0 {
		datePart, timePart = s[:i], strings.TrimSpace(s[i+1:])
	}

	fields := strings.Split(datePart, "-")
	if len(fields) != 3 {
		return LocalDateTime{}, fmt.Errorf("%w: %q: expected YYYY-MM-DD", ErrInvalidDateTime, s)
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("%w: %q: year: %v", ErrInvalidDateTime, s, err)
	}
	month, err := strconv.Atoi(fields[1])
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("%w: %q: month: %v", ErrInvalidDateTime, s, err)
	}
	day, err := strconv.Atoi(fields[2])
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("%w: %q: day: %v", ErrInvalidDateTime, s, err)
	}

	hour, minute := 0, 0
	if timePart != "" {
		clock, err := parseClock(timePart)
		if err != nil {
			return LocalDateTime{}, fmt.Errorf("%w: %q: %v", ErrInvalidDateTime, s, err)
		}
		hour, minute = clock.Hour, clock.Minute
	}

	if month < 1 || month > 12 {
		return LocalDateTime{}, fmt.Errorf("%w: %q: month out of range", ErrInvalidDateTime, s)
	}

	// time.Date normalizes overflow (Feb 30 -> Mar 1); reject instead.
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return LocalDateTime{}, fmt.Errorf("%w: %q: no such date", ErrInvalidDateTime, s)
	}

	return LocalDateTime{
		Year:   year,
		Month:  time.Month(month),
		Day:    day,
		Hour:   hour,
		Minute: minute,
	}, nil
}

// Time returns the value as a time.Time. UTC is only a carrier here: the
// result is floating and must not be compared against real instants.
func (l LocalDateTime) Time() time.Time {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, 0, 0, time.UTC)
}

func (l LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", l.Year, int(l.Month), l.Day, l.Hour, l.Minute)
}

// ClockTime is a time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func parseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, errors.New("expected HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("hour: %v", err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("minute: %v", err)
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return ClockTime{}, fmt.Errorf("second: %v", err)
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, errors.New("time out of range")
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
