package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/storage"
	"github.com/syllabai/syllabai/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	for _, driver := range []string{"sqlite", "sqlite3"} {
		t.Run(driver, func(t *testing.T) {
			storagetest.Run(t, func(t *testing.T) storage.Store {
				s, err := New(filepath.Join(t.TempDir(), "syllabai.db"), driver, zerolog.Nop())
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				t.Cleanup(s.Close)
				return s
			})
		})
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := New(filepath.Join(t.TempDir(), "x.db"), "mysql", zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "syllabai.db")
	s, err := New(path, "sqlite", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	syl := &storage.Syllabus{UserID: "u", Title: "HIST 110", FileURL: "https://files.example/h.pdf"}
	if err := s.CreateSyllabus(t.Context(), syl); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path, "sqlite", zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.GetSyllabus(t.Context(), syl.ID)
	if err != nil || got.Title != "HIST 110" {
		t.Fatalf("expected record after reopen, got %+v, %v", got, err)
	}
}
