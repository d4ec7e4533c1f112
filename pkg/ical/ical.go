package ical

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const (
	floatingLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
)

// DefaultTimezone is the zone every timed property is tagged with unless the
// builder is configured otherwise.
const DefaultTimezone = "America/New_York"

var ErrInvalidOccurrence = errors.New("invalid occurrence")

// Builder serializes occurrences into a VCALENDAR document whose DTSTART and
// DTEND values are all qualified with one TZID.
type Builder struct {
	location *time.Location
	prodID   string
	now      func() time.Time
	newUID   func() string
}

type BuilderOption func(*Builder)

// WithClock overrides the DTSTAMP source.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithUIDGenerator overrides the VEVENT UID source.
func WithUIDGenerator(fn func() string) BuilderOption {
	return func(b *Builder) { b.newUID = fn }
}

func NewBuilder(loc *time.Location, prodID string, opts ...BuilderOption) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if prodID == "" {
		prodID = "-//SyllabAI//Calendar//EN"
	}
	b := &Builder{
		location: loc,
		prodID:   prodID,
		now:      time.Now,
		newUID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Location returns the zone the builder tags timestamps with.
func (b *Builder) Location() *time.Location {
	return b.location
}

// Build returns the calendar document, or nil when no occurrence has a start.
// Malformed occurrences fail the whole build.
func (b *Builder) Build(occurrences []Occurrence) (*string, error) {
	usable := make([]Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ.Start.IsZero() {
			continue
		}
		usable = append(usable, occ)
	}
	if len(usable) == 0 {
		return nil, nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, b.prodID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	stamp := b.now().UTC().Format(utcLayout)
	refYear := usable[0].Start.Year()

	for i, occ := range usable {
		comp, err := b.eventComponent(occ, stamp)
		if err != nil {
			return nil, fmt.Errorf("occurrence %d (%q): %w", i, occ.Title, err)
		}
		cal.Children = append(cal.Children, comp)
		if y := occ.Start.Year(); y < refYear {
			refYear = y
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}

	doc := TagTimezone(buf.String(), b.location.String())

	tzBlock, err := VTimezone(b.location, refYear)
	if err != nil {
		return nil, err
	}
	doc, err = InjectTimezone(doc, tzBlock)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (b *Builder) eventComponent(occ Occurrence, stamp string) (*ical.Component, error) {
	end := occ.End
	if end.IsZero() {
		end = occ.Start
	}
	if end.Before(occ.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidOccurrence,
			end.Format(floatingLayout), occ.Start.Format(floatingLayout))
	}

	ev := ical.NewComponent(ical.CompEvent)
	ev.Props.SetText(ical.PropUID, b.newUID())
	ev.Props.Set(&ical.Prop{Name: ical.PropDateTimeStamp, Value: stamp})
	ev.Props.Set(&ical.Prop{Name: ical.PropDateTimeStart, Value: occ.Start.Format(floatingLayout)})
	ev.Props.Set(&ical.Prop{Name: ical.PropDateTimeEnd, Value: end.Format(floatingLayout)})

	title := occ.Title
	if title == "" {
		title = DefaultTitle
	}
	ev.Props.SetText(ical.PropSummary, title)
	if occ.Location != "" {
		ev.Props.SetText(ical.PropLocation, occ.Location)
	}
	if occ.Description != "" {
		ev.Props.SetText(ical.PropDescription, occ.Description)
	}
	return ev, nil
}
