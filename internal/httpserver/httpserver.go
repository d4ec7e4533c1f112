package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/analyze"
	"github.com/syllabai/syllabai/internal/auth"
	"github.com/syllabai/syllabai/internal/config"
	"github.com/syllabai/syllabai/internal/extract"
	"github.com/syllabai/syllabai/internal/fetch"
	"github.com/syllabai/syllabai/internal/pipeline"
	"github.com/syllabai/syllabai/internal/router"
	"github.com/syllabai/syllabai/internal/storage"
	"github.com/syllabai/syllabai/internal/storage/filestore"
	"github.com/syllabai/syllabai/internal/storage/postgres"
	"github.com/syllabai/syllabai/internal/storage/sqlite"
	"github.com/syllabai/syllabai/pkg/ical"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

func NewServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}

	analyzer, closeAnalyzer, err := analyze.New(ctx, cfg.AI, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		closeAnalyzer()
		store.Close()
		return nil, nil, err
	}

	proc := pipeline.New(
		store,
		fetch.New(cfg.Fetch, logger),
		extract.NewPDF(logger),
		analyzer,
		ical.NewExpander(cfg.Calendar.HorizonMonths, logger),
		ical.NewBuilder(loc, cfg.ICS.BuildProdID()),
		logger,
	)

	// leave authn a nil interface when disabled
	var authn auth.Authenticator
	if cfg.Auth.Enabled {
		authn = auth.NewBearer(cfg.Auth, logger)
	} else {
		logger.Warn().Msg("authentication disabled, all requests act as the anonymous user")
	}

	srv := &Server{
		http: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router.New(cfg, store, proc, authn, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// processing runs inside the request
			WriteTimeout: cfg.AI.Timeout + cfg.Fetch.Timeout + 60*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	cleanup := func() {
		closeAnalyzer()
		store.Close()
	}
	logger.Info().Msgf("listening on %s (storage=%s, ai=%s, tz=%s)", cfg.HTTP.Addr, cfg.Storage.Type, cfg.AI.Provider, loc)
	return srv, cleanup, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Store, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(ctx, cfg.PostgresURL, logger)
	case "sqlite":
		return sqlite.New(cfg.SQLitePath, cfg.SQLiteDriver, logger)
	case "filestore":
		return filestore.New(cfg.FileRoot, logger)
	default:
		return nil, errors.New("unknown storage type: " + cfg.Type)
	}
}

func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
