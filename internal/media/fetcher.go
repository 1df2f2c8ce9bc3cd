package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"reelcast/internal/config"
	"reelcast/internal/fileutil"
	"reelcast/internal/logging"
	"reelcast/internal/services"
	"reelcast/internal/textutil"
)

// Kind distinguishes images from videos for logging and Accept headers.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

const downloadsPrefix = "/downloads/"

// FetchRequest describes one remote file to store.
type FetchRequest struct {
	URL      string
	SeriesID int64
	Filename string
	Kind     Kind
}

// Fetcher downloads remote media into the media directory.
type Fetcher struct {
	root      string
	client    *http.Client
	userAgent string
	attempts  uint
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRetry overrides attempt count and backoff bounds.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = uint(attempts)
		}
		f.baseDelay = baseDelay
		f.maxDelay = maxDelay
	}
}

// WithUserAgent overrides the browser User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher returns a Fetcher rooted at mediaDir.
func NewFetcher(mediaDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		root:      mediaDir,
		client:    &http.Client{Timeout: 30 * time.Minute},
		userAgent: "Mozilla/5.0",
		attempts:  3,
		baseDelay: 2 * time.Second,
		maxDelay:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "media")
	return f
}

// NewFromConfig builds a Fetcher from the downloads and paths sections.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Fetcher {
	timeout := time.Duration(cfg.Downloads.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return NewFetcher(cfg.Paths.MediaDir,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithUserAgent(cfg.Downloads.UserAgent),
		WithRetry(cfg.Downloads.MaxAttempts, 2*time.Second, 30*time.Second),
		WithLogger(logger),
	)
}

// Reference returns the stored reference for a series file.
func Reference(seriesID int64, filename string) string {
	return downloadsPrefix + strconv.FormatInt(seriesID, 10) + "/" + filename
}

// Root returns the media directory.
func (f *Fetcher) Root() string {
	return f.root
}

// Resolve maps a reference produced by Fetch to an absolute path inside the
// media directory.
func (f *Fetcher) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, downloadsPrefix) {
		return "", fmt.Errorf("media reference %q is not under %s", ref, downloadsPrefix)
	}
	cleaned := path.Clean(ref)
	if !strings.HasPrefix(cleaned, downloadsPrefix) {
		return "", fmt.Errorf("media reference %q escapes the downloads directory", ref)
	}
	return filepath.Join(f.root, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

// Fetch downloads req.URL to the series directory and returns its reference.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	ref := Reference(req.SeriesID, req.Filename)
	dst, err := f.Resolve(ref)
	if err != nil {
		return "", services.Mark(services.ErrValidation, err)
	}

	logger := logging.WithContext(ctx, f.logger).With(
		logging.String("kind", string(req.Kind)),
		logging.String("filename", req.Filename),
	)
	start := time.Now()
	var written int64

	err = retry.Do(
		func() error {
			n, err := f.fetchOnce(ctx, req, dst)
			written = n
			return err
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.baseDelay),
		retry.MaxDelay(f.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && errors.Is(err, services.ErrTransient)
		}),
		retry.OnRetry(func(n uint, err error) {
			if errors.Is(err, services.ErrTransient) && n+1 < f.attempts {
				logging.WarnWithContext(logger, "media fetch attempt failed; retrying", "media_fetch_retry",
					logging.Int("attempt", int(n)+1),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "transient network or server error"),
					logging.String(logging.FieldImpact, "download delayed"),
				)
			}
		}),
	)
	if err != nil {
		return "", err
	}
	logger.Info("media stored",
		logging.String(logging.FieldEventType, "media_stored"),
		logging.String("reference", ref),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
	)
	return ref, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, req FetchRequest, dst string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return 0, services.Mark(services.ErrValidation, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", acceptFor(req.Kind))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, services.Mark(services.ErrTransient, fmt.Errorf("Failed to fetch file: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("Failed to fetch file: %s", statusText(resp))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return 0, services.Mark(services.ErrTransient, statusErr)
		}
		return 0, services.Mark(services.ErrNotFound, statusErr)
	}

	body := &bodyReader{r: resp.Body}
	res, err := fileutil.WriteAtomic(dst, body, resp.ContentLength)
	if err != nil {
		// A dropped or truncated body is a transfer fault; anything else is
		// the local disk and is not retried.
		if body.err != nil || errors.Is(err, fileutil.ErrSizeMismatch) {
			return 0, services.Mark(services.ErrTransient, fmt.Errorf("Failed to fetch file: %w", err))
		}
		return 0, services.Mark(services.ErrExternalTool, fmt.Errorf("Failed to store file: %w", err))
	}
	return res.Bytes, nil
}

// bodyReader remembers the first non-EOF read error of a response body.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

func validateRequest(req FetchRequest) error {
	if req.SeriesID <= 0 {
		return services.Mark(services.ErrValidation, errors.New("series id required"))
	}
	if !textutil.IsSafeFileName(req.Filename) {
		return services.Mark(services.ErrValidation, fmt.Errorf("invalid filename %q", req.Filename))
	}
	parsed, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Mark(services.ErrValidation, fmt.Errorf("invalid url %q", req.URL))
	}
	return nil
}

func acceptFor(kind Kind) string {
	if kind == KindVideo {
		return "video/mp4,video/*;q=0.9,*/*;q=0.8"
	}
	return "image/avif,image/webp,image/*,*/*;q=0.8"
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
