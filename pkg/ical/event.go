package ical

import (
	"strings"
	"time"
)

// DefaultTitle is used for events the analyzer returned without a title.
const DefaultTitle = "Untitled Event"

// RawEvent is one entry of the analyzer's ics_events array. Dates are local
// "YYYY-MM-DD[ HH:MM]" strings; Recurrence is free text such as
// "Every Monday 14:35-15:55, Wednesday 14:35-15:55".
type RawEvent struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Recurrence  string `json:"recurrence,omitempty"`
}

func (e RawEvent) title() string {
	if strings.TrimSpace(e.Title) == "" {
		return DefaultTitle
	}
	return e.Title
}

// Occurrence is a single concrete instance of a RawEvent. Start and End are
// floating times (see LocalDateTime.Time).
type Occurrence struct {
	Title       string
	Start       time.Time
	End         time.Time
	Location    string
	Description string
}

func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

type SkipReason string

const (
	SkipInvalidStart   SkipReason = "invalid-start"
	SkipInvalidEnd     SkipReason = "invalid-end"
	SkipUnknownWeekday SkipReason = "unknown-weekday"
)

// Skip records an event or recurrence clause that produced no occurrences.
type Skip struct {
	Event  string
	Clause string
	Reason SkipReason
	Detail string
}

// ExpandResult is the outcome of expanding one RawEvent.
type ExpandResult struct {
	Occurrences []Occurrence
	Skips       []Skip
}

// ExpandReport aggregates ExpandResults over a batch of events.
type ExpandReport struct {
	Occurrences []Occurrence
	Skips       []Skip
	// Total is the number of input events; Expanded counts the ones that
	// produced at least one occurrence.
	Total    int
	Expanded int
}
