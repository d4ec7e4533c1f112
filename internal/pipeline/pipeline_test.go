package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/analyze"
	"github.com/syllabai/syllabai/internal/fetch"
	"github.com/syllabai/syllabai/internal/storage"
	"github.com/syllabai/syllabai/internal/storage/filestore"
	"github.com/syllabai/syllabai/pkg/ical"
)

type fakeFetcher struct {
	dir   string
	err   error
	mu    sync.Mutex
	paths []string
}

func (f *fakeFetcher) Download(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "download.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return path, nil
}

type extractFunc func(ctx context.Context, path string) (string, error)

func (f extractFunc) Extract(ctx context.Context, path string) (string, error) { return f(ctx, path) }

type analyzeFunc func(ctx context.Context, text string) (*analyze.Analysis, error)

func (f analyzeFunc) Analyze(ctx context.Context, text string) (*analyze.Analysis, error) {
	return f(ctx, text)
}

// stageRecorder wraps a store and records every stage transition.
type stageRecorder struct {
	storage.Store
	mu     sync.Mutex
	stages []storage.Stage
}

func (s *stageRecorder) UpdateStage(ctx context.Context, id string, st storage.Stage) error {
	s.mu.Lock()
	s.stages = append(s.stages, st)
	s.mu.Unlock()
	return s.Store.UpdateStage(ctx, id, st)
}

type harness struct {
	store   *stageRecorder
	fetcher *fakeFetcher
	proc    *Processor
	id      string
}

func newHarness(t *testing.T, text string, reply string, analyzeErr error) *harness {
	t.Helper()

	fs, err := filestore.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(fs.Close)
	store := &stageRecorder{Store: fs}

	syl := &storage.Syllabus{UserID: "user-1", Title: "CS 101", FileURL: "https://files.example/cs101.pdf"}
	if err := store.CreateSyllabus(context.Background(), syl); err != nil {
		t.Fatal(err)
	}

	loc, err := time.LoadLocation(ical.DefaultTimezone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	fetcher := &fakeFetcher{dir: t.TempDir()}
	proc := New(
		store,
		fetcher,
		extractFunc(func(ctx context.Context, path string) (string, error) { return text, nil }),
		analyzeFunc(func(ctx context.Context, got string) (*analyze.Analysis, error) {
			if analyzeErr != nil {
				return nil, analyzeErr
			}
			return analyze.ParseAnalysis([]byte(reply))
		}),
		ical.NewExpander(ical.DefaultHorizonMonths, zerolog.Nop()),
		ical.NewBuilder(loc, ""),
		zerolog.Nop(),
	)
	proc.now = func() time.Time { return time.Date(2024, 8, 20, 9, 0, 0, 0, time.UTC) }
	return &harness{store: store, fetcher: fetcher, proc: proc, id: syl.ID}
}

func (h *harness) assertTempRemoved(t *testing.T) {
	t.Helper()
	for _, p := range h.fetcher.paths {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("temp file %s not removed", p)
		}
	}
}

const lectureReply = `{"course":{"code":"CS 101"},"ics_events":[
  {"title":"Lecture","start":"2024-09-04 14:35","end":"2024-09-04 15:55","location":"Hall B","recurrence":"Every Wednesday 14:35-15:55"},
  {"title":"Final exam","start":"2024-12-12 08:00","end":"2024-12-12 11:00"},
  {"title":"Office hours","start":"TBD"}
]}`

func TestProcess_BuildsCalendar(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "CS 101 syllabus text", lectureReply, nil)
	syl, err := h.proc.Process(context.Background(), h.id)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if syl.Stage != storage.StageProcessed || !syl.Processed || syl.ProcessingFailed {
		t.Fatalf("unexpected record state: %+v", syl)
	}
	if !syl.HasCalendar() {
		t.Fatal("expected a calendar")
	}
	doc := *syl.CalendarICS
	if got := strings.Count(doc, "BEGIN:VEVENT"); got != 15 {
		t.Fatalf("expected 14 lectures plus the final, got %d events", got)
	}
	if !ical.HasTimezoneTags(doc) || strings.Count(doc, "BEGIN:VTIMEZONE") != 1 {
		t.Fatal("calendar is not timezone-qualified")
	}
	if len(syl.Analysis) == 0 || !strings.Contains(string(syl.Analysis), `"CS 101"`) {
		t.Fatalf("analysis not stored verbatim: %s", syl.Analysis)
	}

	want := []storage.Stage{storage.StageExtracting, storage.StageAnalyzing, storage.StageCalendarBuilding}
	if len(h.store.stages) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, h.store.stages)
	}
	for i := range want {
		if h.store.stages[i] != want[i] {
			t.Fatalf("expected stages %v, got %v", want, h.store.stages)
		}
	}
	h.assertTempRemoved(t)
}

func TestProcess_NoEventsNoCalendar(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "reading list only", `{"summary":"no dates"}`, nil)
	syl, err := h.proc.Process(context.Background(), h.id)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syl.HasCalendar() || !syl.Processed || syl.ProcessingFailed {
		t.Fatalf("unexpected record: %+v", syl)
	}
	for _, st := range h.store.stages {
		if st == storage.StageCalendarBuilding {
			t.Fatal("calendar stage should be skipped without events")
		}
	}
}

func TestProcess_AllEventsUnparseable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "text", `{"ics_events":[{"title":"Quiz","start":"week 3"}]}`, nil)
	syl, err := h.proc.Process(context.Background(), h.id)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if syl.HasCalendar() || syl.ProcessingFailed {
		t.Fatalf("expected success without a calendar, got %+v", syl)
	}
}

func TestProcess_EmptyText(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "  \n ", lectureReply, nil)
	syl, err := h.proc.Process(context.Background(), h.id)
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if syl == nil || syl.Stage != storage.StageFailed || !syl.ProcessingFailed || !syl.Processed {
		t.Fatalf("failure not recorded: %+v", syl)
	}
	if syl.Error == "" || syl.ErrorAt == nil {
		t.Fatalf("error details missing: %+v", syl)
	}
	h.assertTempRemoved(t)
}

func TestProcess_DownloadFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "text", lectureReply, nil)
	h.fetcher.err = &fetch.StatusError{StatusCode: 403, Body: "AccessDenied"}

	syl, err := h.proc.Process(context.Background(), h.id)
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.StatusCode != 403 {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !syl.ProcessingFailed || !strings.Contains(syl.Error, "403") {
		t.Fatalf("failure not recorded: %+v", syl)
	}
	for _, st := range h.store.stages {
		if st == storage.StageAnalyzing {
			t.Fatal("analysis should not run after a failed download")
		}
	}
}

func TestProcess_AnalyzerTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "text", "", analyze.ErrTimeout)
	syl, err := h.proc.Process(context.Background(), h.id)
	if !errors.Is(err, analyze.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if syl.Stage != storage.StageFailed || syl.HasCalendar() {
		t.Fatalf("unexpected record: %+v", syl)
	}
	h.assertTempRemoved(t)
}

func TestProcess_StructuralBuildError(t *testing.T) {
	t.Parallel()

	reply := `{"ics_events":[{"title":"Backwards","start":"2024-09-04 15:00","end":"2024-09-04 14:00"}]}`
	h := newHarness(t, "text", reply, nil)
	syl, err := h.proc.Process(context.Background(), h.id)
	if !errors.Is(err, ical.ErrInvalidOccurrence) {
		t.Fatalf("expected ErrInvalidOccurrence, got %v", err)
	}
	if !syl.ProcessingFailed || syl.HasCalendar() {
		t.Fatalf("unexpected record: %+v", syl)
	}
}

func TestProcess_ReprocessReplacesFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "text", lectureReply, nil)
	h.fetcher.err = errors.New("connection reset")
	if _, err := h.proc.Process(context.Background(), h.id); err == nil {
		t.Fatal("expected first run to fail")
	}

	h.fetcher.err = nil
	syl, err := h.proc.Process(context.Background(), h.id)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if syl.ProcessingFailed || syl.Error != "" || syl.ErrorAt != nil || !syl.HasCalendar() {
		t.Fatalf("expected a clean processed record, got %+v", syl)
	}
}

func TestProcess_UnknownID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "text", lectureReply, nil)
	_, err := h.proc.Process(context.Background(), "does-not-exist")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(h.store.stages) != 0 {
		t.Fatalf("nothing should be written for an unknown id, got stages %v", h.store.stages)
	}
}
