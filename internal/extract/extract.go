// Package extract pulls plain text out of downloaded syllabus files.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type PDFExtractor struct {
	logger zerolog.Logger
}

func NewPDF(logger zerolog.Logger) *PDFExtractor {
	return &PDFExtractor{logger: logger.With().Str("component", "extract").Logger()}
}

// Extract returns the whitespace-trimmed plain text of the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text = strings.TrimSpace(buf.String())
	e.logger.Debug().Int("pages", r.NumPage()).Int("chars", len(text)).Msg("extracted")
	return text, nil
}
