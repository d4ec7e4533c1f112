package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syllabai/syllabai/internal/storage"
)

func (s *Store) syllabiDir() string {
	return filepath.Join(s.root, "syllabi")
}

func (s *Store) syllabusPath(id string) string {
	return filepath.Join(s.syllabiDir(), id+".json")
}

// validID rejects ids that could escape the store directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

type syllabusFile struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Title            string          `json:"title"`
	FileURL          string          `json:"file_url"`
	Stage            string          `json:"stage"`
	Processed        bool            `json:"processed"`
	ProcessingFailed bool            `json:"processing_failed"`
	Error            string          `json:"error,omitempty"`
	ErrorAt          *time.Time      `json:"error_at,omitempty"`
	Analysis         json.RawMessage `json:"analysis,omitempty"`
	CalendarICS      *string         `json:"calendar_ics,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toFile(s *storage.Syllabus) syllabusFile {
	return syllabusFile{
		ID:               s.ID,
		UserID:           s.UserID,
		Title:            s.Title,
		FileURL:          s.FileURL,
		Stage:            string(s.Stage),
		Processed:        s.Processed,
		ProcessingFailed: s.ProcessingFailed,
		Error:            s.Error,
		ErrorAt:          s.ErrorAt,
		Analysis:         s.Analysis,
		CalendarICS:      s.CalendarICS,
		ProcessedAt:      s.ProcessedAt,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (f syllabusFile) toSyllabus() *storage.Syllabus {
	return &storage.Syllabus{
		ID:               f.ID,
		UserID:           f.UserID,
		Title:            f.Title,
		FileURL:          f.FileURL,
		Stage:            storage.Stage(f.Stage),
		Processed:        f.Processed,
		ProcessingFailed: f.ProcessingFailed,
		Error:            f.Error,
		ErrorAt:          f.ErrorAt,
		Analysis:         f.Analysis,
		CalendarICS:      f.CalendarICS,
		ProcessedAt:      f.ProcessedAt,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func readJSON[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func writeJSON(path string, v any) error {
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) withLock(id string, fn func() error) error {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}
