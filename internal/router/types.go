package router

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/auth"
	"github.com/syllabai/syllabai/internal/config"
	"github.com/syllabai/syllabai/internal/storage"
)

// Processor runs the processing pipeline for one syllabus.
type Processor interface {
	Process(ctx context.Context, id string) (*storage.Syllabus, error)
}

type Router struct {
	config *config.Config
	store  storage.Store
	proc   Processor
	authn  auth.Authenticator
	logger zerolog.Logger
}

type createRequest struct {
	Title   string `json:"title"`
	FileURL string `json:"file_url"`
}

// syllabusView is the API shape of a record.
type syllabusView struct {
	*storage.Syllabus
	HasCalendar bool `json:"hasCalendar"`
}

func view(s *storage.Syllabus) syllabusView {
	return syllabusView{Syllabus: s, HasCalendar: s.HasCalendar()}
}
