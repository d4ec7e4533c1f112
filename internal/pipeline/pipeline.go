// Package pipeline drives one syllabus through download, text extraction,
// AI structuring and calendar generation, persisting progress as it goes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/analyze"
	"github.com/syllabai/syllabai/internal/extract"
	"github.com/syllabai/syllabai/internal/fetch"
	"github.com/syllabai/syllabai/internal/storage"
	"github.com/syllabai/syllabai/pkg/ical"
)

var ErrEmptyText = errors.New("no text could be extracted from the file")

type Processor struct {
	store     storage.Store
	fetcher   fetch.Downloader
	extractor extract.Extractor
	analyzer  analyze.Analyzer
	expander  *ical.Expander
	builder   *ical.Builder
	logger    zerolog.Logger
	now       func() time.Time
}

func New(
	store storage.Store,
	fetcher fetch.Downloader,
	extractor extract.Extractor,
	analyzer analyze.Analyzer,
	expander *ical.Expander,
	builder *ical.Builder,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		analyzer:  analyzer,
		expander:  expander,
		builder:   builder,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Process runs the pipeline for the syllabus with the given id and returns the
// updated record. A failed run is recorded on the record and also returned as
// the error; only an unknown id or a storage failure leaves the record as is.
func (p *Processor) Process(ctx context.Context, id string) (*storage.Syllabus, error) {
	syl, err := p.store.GetSyllabus(ctx, id)
	if err != nil {
		return nil, err
	}
	log := p.logger.With().Str("syllabus", id).Str("user", syl.UserID).Logger()
	log.Info().Msg("processing started")

	res, runErr := p.run(ctx, syl, log)
	if runErr != nil {
		log.Error().Err(runErr).Msg("processing failed")
		res = storage.Result{Failed: true, Error: runErr.Error(), At: p.now()}
	}

	// Record the outcome even if the caller has gone away.
	saveCtx := context.WithoutCancel(ctx)
	if err := p.store.SaveResult(saveCtx, id, res); err != nil {
		return nil, errors.Join(runErr, fmt.Errorf("save result: %w", err))
	}
	updated, err := p.store.GetSyllabus(saveCtx, id)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	if runErr == nil {
		log.Info().Bool("calendar", updated.HasCalendar()).Msg("processing finished")
	}
	return updated, runErr
}

func (p *Processor) run(ctx context.Context, syl *storage.Syllabus, log zerolog.Logger) (storage.Result, error) {
	if err := p.stage(ctx, syl.ID, storage.StageExtracting, log); err != nil {
		return storage.Result{}, err
	}
	path, err := p.fetcher.Download(ctx, syl.FileURL)
	if err != nil {
		return storage.Result{}, fmt.Errorf("download: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("temp file not removed")
		}
	}()

	text, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return storage.Result{}, fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return storage.Result{}, ErrEmptyText
	}

	if err := p.stage(ctx, syl.ID, storage.StageAnalyzing, log); err != nil {
		return storage.Result{}, err
	}
	analysis, err := p.analyzer.Analyze(ctx, text)
	if err != nil {
		return storage.Result{}, fmt.Errorf("analyze: %w", err)
	}

	res := storage.Result{Analysis: analysis.Raw}
	if len(analysis.ICSEvents) > 0 {
		if err := p.stage(ctx, syl.ID, storage.StageCalendarBuilding, log); err != nil {
			return storage.Result{}, err
		}
		report := p.expander.ExpandAll(analysis.ICSEvents)
		log.Info().
			Int("expanded", report.Expanded).
			Int("total", report.Total).
			Int("occurrences", len(report.Occurrences)).
			Int("skipped", len(report.Skips)).
			Msgf("expanded %d of %d events", report.Expanded, report.Total)

		doc, err := p.builder.Build(report.Occurrences)
		if err != nil {
			return storage.Result{}, fmt.Errorf("build calendar: %w", err)
		}
		res.CalendarICS = doc
	}
	res.At = p.now()
	return res, nil
}

func (p *Processor) stage(ctx context.Context, id string, st storage.Stage, log zerolog.Logger) error {
	if err := p.store.UpdateStage(ctx, id, st); err != nil {
		return fmt.Errorf("update stage %s: %w", st, err)
	}
	log.Info().Str("stage", string(st)).Msg("stage")
	return nil
}
