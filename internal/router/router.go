package router

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/auth"
	"github.com/syllabai/syllabai/internal/config"
	"github.com/syllabai/syllabai/internal/storage"
)

// New wires the HTTP API. A nil authn disables authentication.
func New(cfg *config.Config, store storage.Store, proc Processor, authn auth.Authenticator, logger zerolog.Logger) http.Handler {
	r := &Router{
		config: cfg,
		store:  store,
		proc:   proc,
		authn:  authn,
		logger: logger.With().Str("component", "http").Logger(),
	}
	return r.setupRoutes()
}

func (r *Router) setupRoutes() http.Handler {
	base := r.getBasePath()

	api := http.NewServeMux()
	api.HandleFunc("POST "+base+"/syllabi", r.handleCreate)
	api.HandleFunc("GET "+base+"/syllabi", r.handleList)
	api.HandleFunc("GET "+base+"/syllabi/{id}", r.handleGet)
	api.HandleFunc("POST "+base+"/syllabi/{id}/process", r.handleProcess)
	api.HandleFunc("GET "+base+"/syllabi/{id}/calendar.ics", r.handleCalendar)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", r.handleHealth)
	mux.Handle(base+"/", auth.Middleware(r.authn, r.logger)(r.accessLog(api)))
	return mux
}

func (r *Router) getBasePath() string {
	base := strings.TrimRight(r.config.HTTP.BasePath, "/")
	if base == "" {
		return "/api"
	}
	if base[0] != '/' {
		base = "/" + base
	}
	return base
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
