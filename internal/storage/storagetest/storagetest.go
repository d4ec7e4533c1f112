// Package storagetest holds the behaviour every storage.Store backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/syllabai/syllabai/internal/storage"
)

func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		syl := &storage.Syllabus{UserID: "user-1", Title: "CS 101", FileURL: "https://files.example/cs101.pdf"}
		if err := s.CreateSyllabus(ctx, syl); err != nil {
			t.Fatalf("CreateSyllabus: %v", err)
		}
		if syl.ID == "" || syl.Stage != storage.StageUploaded {
			t.Fatalf("expected id and uploaded stage, got %+v", syl)
		}

		got, err := s.GetSyllabus(ctx, syl.ID)
		if err != nil {
			t.Fatalf("GetSyllabus: %v", err)
		}
		if got.UserID != "user-1" || got.Title != "CS 101" || got.Processed || got.HasCalendar() {
			t.Fatalf("unexpected record: %+v", got)
		}
	})

	t.Run("MissingRecord", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.New().String()

		if _, err := s.GetSyllabus(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("GetSyllabus: expected ErrNotFound, got %v", err)
		}
		if err := s.UpdateStage(ctx, id, storage.StageAnalyzing); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("UpdateStage: expected ErrNotFound, got %v", err)
		}
		if err := s.SaveResult(ctx, id, storage.Result{At: time.Now()}); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("SaveResult: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ProcessingLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		syl := &storage.Syllabus{UserID: "user-1", Title: "MATH 220", FileURL: "https://files.example/m220.pdf"}
		if err := s.CreateSyllabus(ctx, syl); err != nil {
			t.Fatal(err)
		}
		if err := s.UpdateStage(ctx, syl.ID, storage.StageAnalyzing); err != nil {
			t.Fatalf("UpdateStage: %v", err)
		}

		failedAt := time.Date(2024, 9, 4, 12, 0, 0, 0, time.UTC)
		if err := s.SaveResult(ctx, syl.ID, storage.Result{Failed: true, Error: "analysis timed out", At: failedAt}); err != nil {
			t.Fatalf("SaveResult(failed): %v", err)
		}
		got, err := s.GetSyllabus(ctx, syl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Stage != storage.StageFailed || !got.Processed || !got.ProcessingFailed || got.Error != "analysis timed out" {
			t.Fatalf("unexpected failed record: %+v", got)
		}
		if got.ErrorAt == nil || !got.ErrorAt.Equal(failedAt) {
			t.Fatalf("unexpected error time: %v", got.ErrorAt)
		}

		doc := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"
		analysis := json.RawMessage(`{"course":"MATH 220","ics_events":[]}`)
		doneAt := failedAt.Add(time.Hour)
		if err := s.SaveResult(ctx, syl.ID, storage.Result{Analysis: analysis, CalendarICS: &doc, At: doneAt}); err != nil {
			t.Fatalf("SaveResult(ok): %v", err)
		}
		got, err = s.GetSyllabus(ctx, syl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Stage != storage.StageProcessed || got.ProcessingFailed || got.Error != "" || got.ErrorAt != nil {
			t.Fatalf("success should clear failure: %+v", got)
		}
		if !got.HasCalendar() {
			t.Fatal("calendar not stored")
		}
		if *got.CalendarICS != doc {
			t.Fatalf("calendar not stored byte-for-byte: %q", *got.CalendarICS)
		}
		var decoded map[string]any
		if err := json.Unmarshal(got.Analysis, &decoded); err != nil || decoded["course"] != "MATH 220" {
			t.Fatalf("analysis not stored: %s (%v)", got.Analysis, err)
		}
		if got.ProcessedAt == nil || !got.ProcessedAt.Equal(doneAt) {
			t.Fatalf("unexpected processed time: %v", got.ProcessedAt)
		}

		// A later run without events clears the stored calendar.
		if err := s.SaveResult(ctx, syl.ID, storage.Result{Analysis: analysis, At: doneAt.Add(time.Hour)}); err != nil {
			t.Fatal(err)
		}
		got, err = s.GetSyllabus(ctx, syl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.HasCalendar() {
			t.Fatal("expected calendar cleared")
		}
	})

	t.Run("ListByUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, u := range []string{"alice", "bob", "alice"} {
			if err := s.CreateSyllabus(ctx, &storage.Syllabus{UserID: u, Title: u, FileURL: "https://files.example/x.pdf"}); err != nil {
				t.Fatal(err)
			}
			time.Sleep(2 * time.Millisecond)
		}
		list, err := s.ListSyllabiByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("ListSyllabiByUser: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 records, got %d", len(list))
		}
		if list[0].CreatedAt.Before(list[1].CreatedAt) {
			t.Fatal("expected newest first")
		}
		none, err := s.ListSyllabiByUser(ctx, "carol")
		if err != nil || len(none) != 0 {
			t.Fatalf("expected empty list, got %v, %v", none, err)
		}
	})
}
