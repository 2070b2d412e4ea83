package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zonehub/backend/internal/config"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

var (
	ErrUnsupportedScheme = errors.New("fetch: unsupported URL scheme")
	ErrBadStatus         = errors.New("fetch: unexpected HTTP status")
)

// ProgressFunc receives byte counts as a transfer proceeds. Total is <= 0
// when the source does not report a size.
type ProgressFunc func(done, total int64)

// Fetcher streams a remote object into dest and returns the byte count.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, dest io.Writer, progress ProgressFunc) (int64, error)
}

// MultiFetcher dispatches on URL scheme: http(s), sftp, and s3 sources.
type MultiFetcher struct {
	httpClient *http.Client
	sftp       *sftpFetcher
	s3         *s3Fetcher
	log        *logger.Logger
}

func New(cfg config.ArtifactsConfig, log *logger.Logger) *MultiFetcher {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	return &MultiFetcher{
		httpClient: &http.Client{Timeout: timeout},
		sftp:       newSFTPFetcher(cfg.SFTP, log),
		s3:         newS3Fetcher(cfg.S3, log),
		log:        log,
	}
}

func (f *MultiFetcher) Fetch(ctx context.Context, rawURL string, dest io.Writer, progress ProgressFunc) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("fetch: invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL, dest, progress)
	case "sftp":
		return f.sftp.fetch(ctx, parsed, dest, progress)
	case "s3":
		return f.s3.fetch(ctx, parsed, dest, progress)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, parsed.Scheme)
	}
}

func (f *MultiFetcher) fetchHTTP(ctx context.Context, rawURL string, dest io.Writer, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	f.log.Infow("fetch_http_start", "url", rawURL, "content_length", resp.ContentLength)
	return copyWithProgress(dest, resp.Body, resp.ContentLength, progress)
}

// copyWithProgress is io.Copy with periodic progress callbacks.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	pw := &progressWriter{dst: dst, total: total, progress: progress}
	done, err := io.Copy(pw, src)
	if err == nil && progress != nil {
		progress(done, total)
	}
	return done, err
}

type progressWriter struct {
	dst      io.Writer
	done     int64
	total    int64
	progress ProgressFunc
	lastTick time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.done += int64(n)
	if w.progress != nil && time.Since(w.lastTick) >= 250*time.Millisecond {
		w.lastTick = time.Now()
		w.progress(w.done, w.total)
	}
	return n, err
}
