package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Stage is the coarse processing state of a syllabus.
type Stage string

const (
	StageUploaded         Stage = "uploaded"
	StageExtracting       Stage = "extracting"
	StageAnalyzing        Stage = "analyzing"
	StageCalendarBuilding Stage = "calendar-building"
	StageProcessed        Stage = "processed"
	StageFailed           Stage = "failed"
)

func (s Stage) Valid() bool {
	switch s {
	case StageUploaded, StageExtracting, StageAnalyzing, StageCalendarBuilding, StageProcessed, StageFailed:
		return true
	}
	return false
}

type Syllabus struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Title            string          `json:"title"`
	FileURL          string          `json:"fileUrl"`
	Stage            Stage           `json:"stage"`
	Processed        bool            `json:"processed"`
	ProcessingFailed bool            `json:"processingFailed"`
	Error            string          `json:"error,omitempty"`
	ErrorAt          *time.Time      `json:"errorAt,omitempty"`
	Analysis         json.RawMessage `json:"analysis,omitempty"`
	CalendarICS      *string         `json:"-"`
	ProcessedAt      *time.Time      `json:"processedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// HasCalendar reports whether a calendar document is stored on the record.
func (s *Syllabus) HasCalendar() bool {
	return s.CalendarICS != nil && *s.CalendarICS != ""
}

// Result is the outcome of one processing run. A failed run only touches the
// error fields; a successful run replaces the analysis and calendar wholesale
// and clears any previous error.
type Result struct {
	Failed      bool
	Error       string
	Analysis    json.RawMessage
	CalendarICS *string
	At          time.Time
}

// Apply folds r into s the same way every backend persists it.
func (r Result) Apply(s *Syllabus) {
	at := r.At.UTC()
	s.Processed = true
	s.UpdatedAt = at
	if r.Failed {
		s.Stage = StageFailed
		s.ProcessingFailed = true
		s.Error = r.Error
		s.ErrorAt = &at
		return
	}
	s.Stage = StageProcessed
	s.ProcessingFailed = false
	s.Error = ""
	s.ErrorAt = nil
	s.Analysis = r.Analysis
	s.CalendarICS = r.CalendarICS
	s.ProcessedAt = &at
}

type Store interface {
	Close()

	CreateSyllabus(ctx context.Context, s *Syllabus) error
	GetSyllabus(ctx context.Context, id string) (*Syllabus, error)
	ListSyllabiByUser(ctx context.Context, userID string) ([]*Syllabus, error)
	UpdateStage(ctx context.Context, id string, stage Stage) error
	SaveResult(ctx context.Context, id string, r Result) error
}
