package ical

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	n := 0
	return NewBuilder(loc, "-//SyllabAI Test//EN",
		WithClock(func() time.Time { return time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC) }),
		WithUIDGenerator(func() string {
			n++
			return fmt.Sprintf("uid-%d@test", n)
		}),
	)
}

func lectureOccurrences(t *testing.T) []Occurrence {
	t.Helper()
	res := NewExpander(DefaultHorizonMonths, zerolog.Nop()).Expand(RawEvent{
		Title:      "Lecture",
		Start:      "2024-09-04 14:35",
		End:        "2024-09-04 15:55",
		Location:   "Hall B",
		Recurrence: "Every Wednesday 14:35-15:55",
	})
	return res.Occurrences
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t)
	doc, err := b.Build(nil)
	if err != nil || doc != nil {
		t.Fatalf("expected nil document, got %v, %v", doc, err)
	}
	doc, err = b.Build([]Occurrence{{Title: "No start"}})
	if err != nil || doc != nil {
		t.Fatalf("expected nil document for start-less occurrences, got %v, %v", doc, err)
	}
}

func TestBuild_RejectsEndBeforeStart(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 9, 4, 10, 0, 0, 0, time.UTC)
	_, err := newTestBuilder(t).Build([]Occurrence{{Title: "Backwards", Start: start, End: start.Add(-time.Hour)}})
	if !errors.Is(err, ErrInvalidOccurrence) {
		t.Fatalf("expected ErrInvalidOccurrence, got %v", err)
	}
}

func TestBuild_DocumentShape(t *testing.T) {
	t.Parallel()

	doc, err := newTestBuilder(t).Build(lectureOccurrences(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a document")
	}
	s := *doc

	if !strings.HasPrefix(s, "BEGIN:VCALENDAR\r\n") {
		t.Fatalf("expected BEGIN:VCALENDAR first, got:\n%s", s[:min(len(s), 80)])
	}
	// Calendar properties come before any component, and the zone before the events.
	tzAt, evAt := strings.Index(s, "BEGIN:VTIMEZONE"), strings.Index(s, "BEGIN:VEVENT")
	for _, prop := range []string{"VERSION:", "PRODID:", "CALSCALE:", "METHOD:"} {
		if at := strings.Index(s, "\r\n"+prop); at < 0 || at > tzAt {
			t.Fatalf("expected %s before VTIMEZONE:\n%s", prop, s[:min(len(s), 300)])
		}
	}
	if tzAt > evAt {
		t.Fatal("expected VTIMEZONE before the first VEVENT")
	}
	if n := strings.Count(s, "BEGIN:VTIMEZONE"); n != 1 {
		t.Fatalf("expected exactly one VTIMEZONE, got %d", n)
	}
	if n := strings.Count(s, "BEGIN:VEVENT"); n != 14 {
		t.Fatalf("expected 14 events, got %d", n)
	}
	if !HasTimezoneTags(s) {
		t.Fatal("found an untagged DTSTART/DTEND")
	}
	for _, want := range []string{
		"DTSTART;TZID=America/New_York:20240904T143500",
		"DTEND;TZID=America/New_York:20240904T155500",
		"DTSTART;TZID=America/New_York:20241204T143500",
		"TZID:America/New_York",
		"PRODID:-//SyllabAI Test//EN",
		"VERSION:2.0",
		"DTSTAMP:20240820T120000Z",
		"UID:uid-1@test",
		"LOCATION:Hall B",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("document missing %q", want)
		}
	}
	if !strings.HasSuffix(s, "END:VCALENDAR\r\n") {
		t.Fatal("document does not end with END:VCALENDAR")
	}
}

func TestBuild_ParsesWithIndependentReader(t *testing.T) {
	t.Parallel()

	doc, err := newTestBuilder(t).Build(lectureOccurrences(t))
	if err != nil || doc == nil {
		t.Fatalf("Build: %v", err)
	}

	cal, err := goical.ParseCalendar(strings.NewReader(*doc))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 14 {
		t.Fatalf("expected 14 events, got %d", len(events))
	}
	for i, ev := range events {
		for _, prop := range []goical.ComponentProperty{goical.ComponentPropertyDtStart, goical.ComponentPropertyDtEnd} {
			p := ev.GetProperty(prop)
			if p == nil {
				t.Fatalf("event %d: missing %s", i, prop)
			}
			tzid := p.ICalParameters["TZID"]
			if len(tzid) != 1 || tzid[0] != DefaultTimezone {
				t.Fatalf("event %d: %s TZID = %v", i, prop, tzid)
			}
		}
		if s := ev.GetProperty(goical.ComponentPropertySummary); s == nil || s.Value != "Lecture" {
			t.Fatalf("event %d: unexpected summary %v", i, s)
		}
	}
}

func TestBuild_UniqueUIDs(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	doc, err := NewBuilder(loc, "").Build(lectureOccurrences(t))
	if err != nil || doc == nil {
		t.Fatalf("Build: %v", err)
	}
	seen := map[string]bool{}
	for _, line := range strings.Split(*doc, "\r\n") {
		if !strings.HasPrefix(line, "UID:") {
			continue
		}
		if seen[line] {
			t.Fatalf("duplicate %s", line)
		}
		seen[line] = true
	}
	if len(seen) != 14 {
		t.Fatalf("expected 14 UIDs, got %d", len(seen))
	}
}

func TestBuild_ZeroEndUsesStart(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 11, 1, 23, 59, 0, 0, time.UTC)
	doc, err := newTestBuilder(t).Build([]Occurrence{{Title: "Essay due", Start: start}})
	if err != nil || doc == nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(*doc, "DTEND;TZID=America/New_York:20241101T235900") {
		t.Fatalf("expected DTEND equal to DTSTART:\n%s", *doc)
	}
}
