// Package acquire makes the four GTFS text files available on disk,
// downloading and extracting the feed archive when they are missing or stale.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mesh-intelligence/gtfstables/internal/feed"
	"github.com/mesh-intelligence/gtfstables/pkg/types"
)

// Acquisition errors.
var (
	ErrNoURL      = errors.New("feed files missing and no feed url configured")
	ErrDownload   = errors.New("feed download failed")
	ErrArchive    = errors.New("feed archive is missing required files")
	ErrBadArchive = errors.New("feed archive is not a valid zip")
)

const defaultBackoff = time.Second

// FileStatus describes one feed file on disk.
type FileStatus struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// Fetcher downloads and extracts the feed archive described by a FeedConfig.
type Fetcher struct {
	cfg      types.FeedConfig
	client   *http.Client
	logger   *slog.Logger
	progress io.Writer
	backoff  time.Duration
	now      func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. The client's timeout is left as is.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithProgress draws a download progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) { f.progress = w }
}

// WithBackoff sets the base delay between download attempts. Attempt n waits
// n times the base.
func WithBackoff(d time.Duration) Option {
	return func(f *Fetcher) { f.backoff = d }
}

// NewFetcher creates a Fetcher. A nil logger discards output.
func NewFetcher(cfg types.FeedConfig, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		backoff: defaultBackoff,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Paths returns the locations of the four feed files in the feed directory.
func (f *Fetcher) Paths() types.FeedPaths {
	return feed.PathsIn(f.cfg.Dir)
}

// Status reports existence, size and modification time of each feed file in
// dir, in the order of types.FeedFileNames.
func Status(dir string) ([]FileStatus, error) {
	out := make([]FileStatus, 0, len(types.FeedFileNames))
	for _, name := range types.FeedFileNames {
		st := FileStatus{Name: name, Path: filepath.Join(dir, name)}
		info, err := os.Stat(st.Path)
		switch {
		case err == nil:
			st.Exists = true
			st.Size = info.Size()
			st.ModTime = info.ModTime()
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("stat %s: %w", st.Path, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// NeedsDownload reports whether any feed file is missing, or older than the
// configured max age when one is set.
func (f *Fetcher) NeedsDownload() (bool, error) {
	files, err := Status(f.cfg.Dir)
	if err != nil {
		return false, err
	}
	for _, st := range files {
		if !st.Exists {
			return true, nil
		}
		if f.cfg.MaxAge > 0 && f.now().Sub(st.ModTime) > f.cfg.MaxAge {
			return true, nil
		}
	}
	return false, nil
}

// EnsureAvailable downloads the feed when NeedsDownload says so and returns
// the feed file paths. downloaded reports whether a download happened.
func (f *Fetcher) EnsureAvailable(ctx context.Context) (paths types.FeedPaths, downloaded bool, err error) {
	need, err := f.NeedsDownload()
	if err != nil {
		return types.FeedPaths{}, false, err
	}
	if !need {
		f.logger.Debug("feed files present", "dir", f.cfg.Dir)
		return f.Paths(), false, nil
	}
	if err := f.Fetch(ctx); err != nil {
		return types.FeedPaths{}, false, err
	}
	return f.Paths(), true, nil
}

// Fetch downloads the feed archive unconditionally and extracts the four feed
// files into the feed directory, replacing existing copies.
func (f *Fetcher) Fetch(ctx context.Context) error {
	if f.cfg.URL == "" {
		return ErrNoURL
	}
	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}

	archive, err := f.downloadWithRetry(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(archive)

	n, err := extract(archive, f.cfg.Dir)
	if err != nil {
		return err
	}
	f.logger.Info("feed extracted", "dir", f.cfg.Dir, "files", n)
	return nil
}

func (f *Fetcher) downloadWithRetry(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.backoff
			f.logger.Warn("retrying feed download", "attempt", attempt+1, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		path, err := f.download(ctx)
		if err == nil {
			return path, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrDownload, f.cfg.Retries+1, lastErr)
}

// download fetches the archive into a temp file in the feed directory.
func (f *Fetcher) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	f.logger.Info("downloading feed", "url", f.cfg.URL)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(f.cfg.Dir, ".feed-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	var body io.Reader = resp.Body
	var bar *progressBar
	if f.progress != nil && resp.ContentLength > 0 {
		bar = newProgressBar(f.progress, resp.ContentLength)
		body = io.TeeReader(resp.Body, bar)
	}

	written, err := io.Copy(tmp, body)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	f.logger.Debug("feed downloaded", "bytes", written)
	return tmpName, nil
}
