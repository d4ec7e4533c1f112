package ical

import (
	"strings"
	"time"
)

type RecurrenceKind int

const (
	RecurrenceNone RecurrenceKind = iota
	RecurrenceWeekly
)

func (k RecurrenceKind) String() string {
	switch k {
	case RecurrenceWeekly:
		return "weekly"
	default:
		return "none"
	}
}

// Recurrence is the structured form of the analyzer's recurrence text.
//
// Weekdays keeps clause order and duplicates. StartTime/EndTime hold the first
// clause's window when one was given; expansion always takes the time of day
// from the event's own start and end instead.
type Recurrence struct {
	Kind      RecurrenceKind
	Weekdays  []time.Weekday
	StartTime ClockTime
	EndTime   ClockTime
	HasWindow bool
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LookupWeekday resolves a full English weekday name, ignoring case.
func LookupWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// ParseRecurrence turns "Every <Weekday> <HH:MM>-<HH:MM>[, <Weekday> ...]" into
// a Recurrence. Blank input means RecurrenceNone. Clauses naming an unknown
// weekday are dropped and reported as skips.
func ParseRecurrence(s string) (Recurrence, []Skip) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Recurrence{Kind: RecurrenceNone}, nil
	}
	if len(s) >= len("every ") && strings.EqualFold(s[:len("every ")], "every ") {
		s = s[len("every "):]
	}

	rec := Recurrence{Kind: RecurrenceWeekly}
	var skips []Skip

	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		fields := strings.Fields(clause)

		wd, ok := LookupWeekday(fields[0])
		if !ok {
			skips = append(skips, Skip{
				Clause: clause,
				Reason: SkipUnknownWeekday,
				Detail: "unknown weekday " + fields[0],
			})
			continue
		}
		rec.Weekdays = append(rec.Weekdays, wd)

		if !rec.HasWindow && len(fields) > 1 {
			if start, end, ok := parseWindow(fields[1]); ok {
				rec.StartTime, rec.EndTime, rec.HasWindow = start, end, true
			}
		}
	}

	return rec, skips
}

func parseWindow(s string) (ClockTime, ClockTime, bool) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return ClockTime{}, ClockTime{}, false
	}
	start, err := parseClock(from)
	if err != nil {
		return ClockTime{}, ClockTime{}, false
	}
	end, err := parseClock(to)
	if err != nil {
		return ClockTime{}, ClockTime{}, false
	}
	return start, end, true
}
