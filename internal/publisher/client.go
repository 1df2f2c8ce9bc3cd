package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"reelcast/internal/config"
	"reelcast/internal/enrich"
	"reelcast/internal/logging"
	"reelcast/internal/services"
)

const (
	apiVersion          = "1.3"
	maxBodyBytes        = 1 << 20
	defaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64; rv:146.0) Gecko/20100101 Firefox/146.0"
	defaultOrigin       = "https://rumble.com"
	defaultURLDomain    = "rumble.com"
	defaultPublicURL    = "https://rumble.com/v"
	defaultStepTimeout  = 60 * time.Second
	simulatedUploadTime = 20 * time.Second
)

// Request describes one file to publish.
type Request struct {
	FilePath    string
	FileName    string
	Title       string
	Description string
}

// Result carries the platform identifiers. URL is empty when the publish
// response did not contain one; use FallbackURL then.
type Result struct {
	VideoID string
	URL     string
}

// Settings holds the platform credentials and form constants.
type Settings struct {
	BaseURL        string
	Cookie         string
	UserAgent      string
	Origin         string
	ChannelID      string
	SiteChannelID  string
	MediaChannelID string
	URLDomain      string
	PublicURLBase  string
}

// Client runs the publish protocol.
type Client struct {
	settings Settings
	http     *http.Client
	transfer *http.Client
	tagger   enrich.Tagger
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for the short protocol steps.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTransferClient sets the client used for the file transfer.
func WithTransferClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.transfer = client
		}
	}
}

// WithTagger sets the tag source for the publish form.
func WithTagger(tagger enrich.Tagger) Option {
	return func(c *Client) {
		if tagger != nil {
			c.tagger = tagger
		}
	}
}

// WithClock overrides the clock used for file_meta.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a publisher client.
func NewClient(settings Settings, opts ...Option) *Client {
	settings.BaseURL = strings.TrimSpace(settings.BaseURL)
	settings.Cookie = strings.TrimSpace(settings.Cookie)
	settings.UserAgent = orDefault(settings.UserAgent, defaultUserAgent)
	settings.Origin = strings.TrimRight(orDefault(settings.Origin, defaultOrigin), "/")
	settings.URLDomain = orDefault(settings.URLDomain, defaultURLDomain)
	settings.PublicURLBase = orDefault(settings.PublicURLBase, defaultPublicURL)
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: defaultStepTimeout},
		transfer: &http.Client{},
		tagger:   enrich.Noop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "publisher")
	return c
}

// NewFromConfig builds a client from the publisher section.
func NewFromConfig(cfg *config.Config, tagger enrich.Tagger, logger *slog.Logger) *Client {
	p := cfg.Publisher
	transfer := &http.Client{}
	if p.TransferTimeoutSeconds > 0 {
		transfer.Timeout = time.Duration(p.TransferTimeoutSeconds) * time.Second
	}
	return NewClient(Settings{
		BaseURL:        p.BaseURL,
		Cookie:         p.Cookie,
		UserAgent:      p.UserAgent,
		Origin:         p.Origin,
		ChannelID:      p.ChannelID,
		SiteChannelID:  p.SiteChannelID,
		MediaChannelID: p.MediaChannelID,
		URLDomain:      p.URLDomain,
		PublicURLBase:  p.PublicURLBase,
	},
		WithHTTPClient(&http.Client{Timeout: time.Duration(p.RequestTimeoutSeconds) * time.Second}),
		WithTransferClient(transfer),
		WithTagger(tagger),
		WithLogger(logger),
	)
}

// FallbackURL is the public URL derived from a video id.
func (c *Client) FallbackURL(videoID string) string {
	return c.settings.PublicURLBase + strings.TrimSpace(videoID)
}

// Publish runs the four protocol steps for one file.
func (c *Client) Publish(ctx context.Context, req Request) (Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(logging.String("file", req.FileName))

	info, err := os.Stat(req.FilePath)
	if err != nil || info.IsDir() {
		return Result{}, services.Mark(services.ErrValidation, fmt.Errorf("File not found: %s", req.FilePath))
	}
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = info.Name()
	}

	start := time.Now()
	videoID, err := c.uploadFile(ctx, req.FilePath, fileName, info.Size())
	if err != nil {
		return Result{}, err
	}
	logger = logger.With(logging.String("video_id", videoID))
	logger.Info("video transferred",
		logging.String(logging.FieldEventType, "publish_transferred"),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(start)),
	)

	if err := c.signalDuration(ctx, videoID); err != nil {
		logger.Debug("duration signal failed", logging.Error(err))
	}

	thumbs, err := c.fetchThumbnails(ctx, videoID)
	if err != nil {
		return Result{VideoID: videoID}, err
	}
	if len(thumbs) == 0 {
		return Result{VideoID: videoID}, services.Mark(services.ErrProtocol, errors.New("No thumbnails available"))
	}
	thumb := thumbs[0]
	logger.Debug("thumbnail selected", logging.String("thumbnail", thumb), logging.Int("available", len(thumbs)))

	tags := c.tagger.Tags(ctx, req.Title, req.Description)

	publicURL, err := c.submit(ctx, formInput{
		videoID:     videoID,
		title:       req.Title,
		description: req.Description,
		tags:        tags,
		thumbnail:   thumb,
		fileName:    fileName,
		fileSize:    info.Size(),
	})
	if err != nil {
		return Result{VideoID: videoID}, err
	}
	logger.Info("video published",
		logging.String(logging.FieldEventType, "publish_submitted"),
		logging.String("url", publicURL),
		logging.Bool("tagged", tags != ""),
	)
	return Result{VideoID: videoID, URL: publicURL}, nil
}

func (c *Client) endpoint(query url.Values) string {
	query.Set("api", apiVersion)
	base := c.settings.BaseURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + query.Encode()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publisher", "request", "invalid publisher url", err)
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.7")
	req.Header.Set("Origin", c.settings.Origin)
	req.Header.Set("Referer", c.settings.Origin+"/")
	if c.settings.Cookie != "" {
		req.Header.Set("Cookie", c.settings.Cookie)
	}
	return req, nil
}

func (c *Client) signalDuration(ctx context.Context, videoID string) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(url.Values{"duration": {videoID}}), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return nil
}

func (c *Client) fetchThumbnails(ctx context.Context, videoID string) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(url.Values{"thumbnails": {videoID}}), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Mark(services.ErrTransient, fmt.Errorf("Failed to fetch thumbnails: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Mark(services.ErrExternalTool, fmt.Errorf("Failed to fetch thumbnails: status %d", resp.StatusCode))
	}
	keys, err := thumbnailKeys(io.LimitReader(resp.Body, 32*maxBodyBytes))
	if err != nil {
		return nil, services.Mark(services.ErrProtocol, fmt.Errorf("Failed to read thumbnails: %w", err))
	}
	return keys, nil
}

func readBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return string(data)
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
