package filestore

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/storage"
	"github.com/syllabai/syllabai/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(t.TempDir(), zerolog.Nop())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(s.Close)
		return s
	})
}

func TestRejectsPathIDs(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.GetSyllabus(context.Background(), "../etc/passwd"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = s.CreateSyllabus(context.Background(), &storage.Syllabus{ID: "a/b", UserID: "u", FileURL: "https://x"})
	if err == nil {
		t.Fatal("expected invalid id error")
	}
}

func TestNewRequiresRoot(t *testing.T) {
	t.Parallel()

	if _, err := New("", zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty root")
	}
}
