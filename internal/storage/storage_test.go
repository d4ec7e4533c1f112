package storage

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResultApply(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 9, 4, 12, 0, 0, 0, time.UTC)
	doc := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	s := &Syllabus{ID: "a", Stage: StageAnalyzing}
	Result{Failed: true, Error: "download: status 404", At: at}.Apply(s)
	if s.Stage != StageFailed || !s.Processed || !s.ProcessingFailed || s.Error == "" || s.ErrorAt == nil {
		t.Fatalf("unexpected failed record: %+v", s)
	}
	if s.HasCalendar() {
		t.Fatal("failed run must not produce a calendar")
	}

	Result{Analysis: json.RawMessage(`{"ics_events":[]}`), CalendarICS: &doc, At: at.Add(time.Minute)}.Apply(s)
	if s.Stage != StageProcessed || s.ProcessingFailed || s.Error != "" || s.ErrorAt != nil {
		t.Fatalf("success should clear the previous failure: %+v", s)
	}
	if !s.HasCalendar() || s.ProcessedAt == nil || !s.ProcessedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("unexpected processed record: %+v", s)
	}
}

func TestStageValid(t *testing.T) {
	t.Parallel()

	for _, st := range []Stage{StageUploaded, StageExtracting, StageAnalyzing, StageCalendarBuilding, StageProcessed, StageFailed} {
		if !st.Valid() {
			t.Fatalf("%q should be valid", st)
		}
	}
	if Stage("done").Valid() {
		t.Fatal("unknown stage reported valid")
	}
}

func TestSyllabusJSONHidesCalendar(t *testing.T) {
	t.Parallel()

	doc := "BEGIN:VCALENDAR"
	b, err := json.Marshal(&Syllabus{ID: "a", CalendarICS: &doc})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for k := range m {
		if k == "calendarIcs" || k == "CalendarICS" {
			t.Fatalf("calendar document leaked into record JSON: %s", b)
		}
	}
}
