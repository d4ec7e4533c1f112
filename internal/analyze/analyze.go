// Package analyze turns extracted syllabus text into structured JSON with a
// generative model.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/config"
	"github.com/syllabai/syllabai/pkg/ical"
)

var (
	ErrTimeout       = errors.New("analysis timed out")
	ErrEmptyResponse = errors.New("empty model response")
	ErrMalformed     = errors.New("model response is not a JSON object")
)

// Analysis is the model's structured reading of a syllabus. Raw keeps the
// whole object as returned so it can be stored and shown verbatim.
type Analysis struct {
	ICSEvents []ical.RawEvent `json:"ics_events"`
	Raw       json.RawMessage `json:"-"`
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// New returns the analyzer for cfg.AI.Provider.
func New(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (Analyzer, func(), error) {
	logger = logger.With().Str("component", "analyze").Str("provider", cfg.Provider).Logger()
	switch cfg.Provider {
	case "gemini":
		g, err := NewGemini(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	case "openai":
		return NewOpenAI(cfg, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// ParseAnalysis decodes a model reply. Markdown code fences around the JSON
// are tolerated; ics_events may be absent.
func ParseAnalysis(b []byte) (*Analysis, error) {
	b = stripFences(b)
	if len(b) == 0 {
		return nil, ErrEmptyResponse
	}
	if b[0] != '{' {
		return nil, ErrMalformed
	}

	var a Analysis
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	a.Raw = append(json.RawMessage(nil), b...)
	return &a, nil
}

func stripFences(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	// Drop the opening fence line, which may carry a language tag.
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	} else {
		return nil
	}
	b = bytes.TrimSpace(b)
	b = bytes.TrimSuffix(b, []byte("```"))
	return bytes.TrimSpace(b)
}

// complete bounds one model call by timeout and parses its reply.
func complete(ctx context.Context, timeout time.Duration, logger zerolog.Logger, call func(context.Context) (string, error)) (*Analysis, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := call(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, ErrEmptyResponse
	}

	a, err := ParseAnalysis([]byte(out))
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("events", len(a.ICSEvents)).
		Int("bytes", len(out)).
		Dur("took", time.Since(start)).
		Msg("analysis complete")
	return a, nil
}
