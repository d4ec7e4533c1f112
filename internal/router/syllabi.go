package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/syllabai/syllabai/internal/auth"
	"github.com/syllabai/syllabai/internal/fetch"
	"github.com/syllabai/syllabai/internal/storage"
)

const defaultMaxBodyBytes = 1 << 20

func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())

	var body createRequest
	limit := r.config.HTTP.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, limit)).Decode(&body); err != nil {
		r.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := fetch.CheckURL(r.config.Fetch, body.FileURL)
	if err != nil {
		r.writeError(w, http.StatusBadRequest, "file_url: "+err.Error())
		return
	}

	syl := &storage.Syllabus{
		UserID:  p.UserID,
		Title:   strings.TrimSpace(body.Title),
		FileURL: u.String(),
	}
	if err := r.store.CreateSyllabus(req.Context(), syl); err != nil {
		r.logger.Error().Err(err).Msg("create syllabus")
		r.writeError(w, http.StatusInternalServerError, "could not store syllabus")
		return
	}
	w.Header().Set("Location", r.getBasePath()+"/syllabi/"+syl.ID)
	r.writeJSON(w, http.StatusCreated, view(syl))
}

func (r *Router) handleList(w http.ResponseWriter, req *http.Request) {
	p, _ := auth.PrincipalFrom(req.Context())

	list, err := r.store.ListSyllabiByUser(req.Context(), p.UserID)
	if err != nil {
		r.logger.Error().Err(err).Msg("list syllabi")
		r.writeError(w, http.StatusInternalServerError, "could not list syllabi")
		return
	}
	out := make([]syllabusView, 0, len(list))
	for _, s := range list {
		out = append(out, view(s))
	}
	r.writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) {
	syl, ok := r.owned(w, req)
	if !ok {
		return
	}
	r.writeJSON(w, http.StatusOK, view(syl))
}

// handleProcess runs the pipeline synchronously. A failed run still answers
// 200: the returned record carries the failure.
func (r *Router) handleProcess(w http.ResponseWriter, req *http.Request) {
	syl, ok := r.owned(w, req)
	if !ok {
		return
	}

	updated, err := r.proc.Process(req.Context(), syl.ID)
	if updated == nil {
		if errors.Is(err, storage.ErrNotFound) {
			r.writeError(w, http.StatusNotFound, "syllabus not found")
			return
		}
		r.logger.Error().Err(err).Str("syllabus", syl.ID).Msg("process syllabus")
		r.writeError(w, http.StatusInternalServerError, "processing could not be recorded")
		return
	}
	r.writeJSON(w, http.StatusOK, view(updated))
}

func (r *Router) handleCalendar(w http.ResponseWriter, req *http.Request) {
	syl, ok := r.owned(w, req)
	if !ok {
		return
	}
	if !syl.HasCalendar() {
		r.writeError(w, http.StatusNotFound, "no calendar for this syllabus")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+calendarFilename(syl.Title)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(*syl.CalendarICS))
}

// owned loads the {id} record and checks it belongs to the caller, writing the
// error response itself when it does not.
func (r *Router) owned(w http.ResponseWriter, req *http.Request) (*storage.Syllabus, bool) {
	p, _ := auth.PrincipalFrom(req.Context())

	syl, err := r.store.GetSyllabus(req.Context(), req.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		r.writeError(w, http.StatusNotFound, "syllabus not found")
		return nil, false
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("get syllabus")
		r.writeError(w, http.StatusInternalServerError, "could not load syllabus")
		return nil, false
	}
	if p == nil || syl.UserID != p.UserID {
		r.writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return syl, true
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func calendarFilename(title string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if name == "" {
		name = "syllabus"
	}
	return name + "_calendar.ics"
}
