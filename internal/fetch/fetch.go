// Package fetch downloads syllabus files referenced by URL.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/syllabai/syllabai/internal/config"
)

var (
	ErrTooLarge       = errors.New("download exceeds size limit")
	ErrInvalidURL     = errors.New("file URL must be an absolute http(s) URL")
	ErrHostNotAllowed = errors.New("file URL host is not allowed")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

type Fetcher struct {
	client *http.Client
	cfg    config.FetchConfig
	logger zerolog.Logger
}

func New(cfg config.FetchConfig, logger zerolog.Logger) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		logger: logger.With().Str("component", "fetch").Logger(),
	}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			if _, err := CheckURL(cfg, req.URL.String()); err != nil {
				return fmt.Errorf("redirect: %w", err)
			}
			return nil
		},
	}
	return f
}

// CheckURL parses raw and verifies it may be downloaded under cfg.
func CheckURL(cfg config.FetchConfig, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, ErrInvalidURL
	}
	if len(cfg.AllowedHosts) > 0 && !hostAllowed(cfg.AllowedHosts, u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return u, nil
}

func hostAllowed(allowed []string, host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, a := range allowed {
		if strings.HasPrefix(a, ".") {
			if strings.HasSuffix(host, a) || host == a[1:] {
				return true
			}
			continue
		}
		if host == a {
			return true
		}
	}
	return false
}

// Download streams url into a temporary file and returns its path. The caller
// removes the file.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	u, err := CheckURL(f.cfg, rawURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	// the credential only goes to hosts on the allow-list
	if f.cfg.AuthHeader != "" && len(f.cfg.AllowedHosts) > 0 {
		req.Header.Set("Authorization", f.cfg.AuthHeader)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	tmp, err := os.CreateTemp("", "syllabus-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()

	var src io.Reader = resp.Body
	if f.cfg.MaxBytes > 0 {
		src = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.cfg.MaxBytes > 0 && n > f.cfg.MaxBytes {
		err = fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.cfg.MaxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("download: %w", err)
	}

	f.logger.Debug().Str("host", u.Host).Int64("bytes", n).Str("path", path).Msg("downloaded")
	return path, nil
}
