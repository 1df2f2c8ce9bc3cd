package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/services"
)

const (
	searchPath = "/i18n_novel/bookmall/cell/change/v1/"
	detailPath = "/novel/player/video_detail/v1/"
	streamPath = "/novel/player/video_model/v1/"

	defaultTagID   = "25"
	defaultTagType = "2"
	defaultCellID  = "7450059162446200848"
	defaultLimit   = 20

	defaultEpisodeWidth   = 720
	defaultEpisodeHeight  = 1080
	defaultStreamWidth    = 720
	defaultStreamHeight   = 1280
	defaultDefinition     = "720p"
	maxResponseBodyBytes  = 16 << 20
	defaultRequestTimeout = 30 * time.Second
)

// ErrNoStream is returned when the catalog has no playable URL for a video.
var ErrNoStream = errors.New("no video URL found")

// HTTPDoer is the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the upstream catalog.
type Client struct {
	baseURL string
	headers map[string]string
	params  map[string]string
	client  HTTPDoer
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithClock overrides the clock used for request timestamps.
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

// NewClient builds a catalog client. headers and params are sent verbatim on
// every request.
func NewClient(baseURL string, headers, params map[string]string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		headers: cloneMap(headers),
		params:  cloneMap(params),
		client:  &http.Client{Timeout: defaultRequestTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "catalog")
	return c
}

// NewFromConfig builds a client from the catalog section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Headers, cfg.Catalog.Params,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithLogger(logger),
	)
}

// Configured reports whether a catalog base URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Search lists catalog series.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]SeriesSummary, error) {
	query := url.Values{}
	query.Set("selected_tag_id", firstNonEmpty(opts.TagID, defaultTagID))
	query.Set("selected_tag_type", firstNonEmpty(opts.TagType, defaultTagType))
	query.Set("cell_id", firstNonEmpty(opts.CellID, defaultCellID))
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("start_offset", "0")
	query.Set("max_abstract_len", "0")

	var env searchEnvelope
	if err := c.do(ctx, http.MethodGet, searchPath, query, nil, &env); err != nil {
		return nil, err
	}
	items := make([]SeriesSummary, 0, len(env.Data.Cell.Books))
	for _, book := range env.Data.Cell.Books {
		items = append(items, SeriesSummary{
			SeriesID:     string(book.BookID),
			Title:        book.BookName,
			Intro:        book.Abstract,
			CoverURL:     book.ThumbURL,
			EpisodeCount: int(book.SerialCount),
		})
	}
	return items, nil
}

// FetchDetail returns a series and its episode list.
func (c *Client) FetchDetail(ctx context.Context, seriesID string) (*SeriesDetail, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch detail", "Series ID required", nil)
	}
	body := map[string]any{
		"series_id": seriesID,
		"biz_param": map[string]any{
			"detail_page_version":       0,
			"from_video_id":             "",
			"need_all_video_definition": false,
			"need_mp4_align":            false,
			"source":                    4,
			"use_os_player":             false,
			"use_server_dns":            false,
			"video_id_type":             1,
		},
	}
	var env detailEnvelope
	if err := c.do(ctx, http.MethodPost, detailPath, nil, body, &env); err != nil {
		return nil, err
	}
	data := env.Data.VideoData
	if data == nil {
		return nil, services.Wrap(services.ErrProtocol, "catalog", "fetch detail", "Failed to fetch series data", nil)
	}
	detail := &SeriesDetail{
		SeriesID:     seriesID,
		Title:        data.SeriesTitle,
		Intro:        data.SeriesIntro,
		CoverURL:     data.SeriesCover,
		EpisodeCount: int(data.EpisodeCnt),
		Episodes:     make([]EpisodeDetail, 0, len(data.VideoList)),
	}
	for _, v := range data.VideoList {
		detail.Episodes = append(detail.Episodes, EpisodeDetail{
			VID:      string(v.VID),
			Title:    v.Title,
			CoverURL: v.EpisodeCover,
			Index:    int(v.VidIndex),
			Duration: int(v.Duration),
			Width:    positiveOr(int(v.VideoWidth), defaultEpisodeWidth),
			Height:   positiveOr(int(v.VideoHeight), defaultEpisodeHeight),
		})
	}
	return detail, nil
}

// FetchStreamURL resolves the playable URL of an episode.
func (c *Client) FetchStreamURL(ctx context.Context, vid string) (*Stream, error) {
	vid = strings.TrimSpace(vid)
	if vid == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch stream", "Video ID required", nil)
	}
	body := map[string]any{
		"video_id": vid,
		"biz_param": map[string]any{
			"detail_page_version":       0,
			"device_level":              3,
			"from_video_id":             "",
			"need_all_video_definition": true,
			"need_mp4_align":            false,
			"use_os_player":             false,
			"use_server_dns":            false,
			"video_id_type":             0,
			"video_platform":            3,
		},
	}
	var env streamEnvelope
	if err := c.do(ctx, http.MethodPost, streamPath, nil, body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil || strings.TrimSpace(env.Data.MainURL) == "" {
		return nil, services.Mark(services.ErrNotFound, fmt.Errorf("%w for %s", ErrNoStream, vid))
	}
	return &Stream{
		URL:        strings.TrimSpace(env.Data.MainURL),
		Definition: firstNonEmpty(env.Data.Definition, defaultDefinition),
		Width:      positiveOr(int(env.Data.VideoWidth), defaultStreamWidth),
		Height:     positiveOr(int(env.Data.VideoHeight), defaultStreamHeight),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, target any) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, "catalog", "request", "catalog.base_url is not configured", nil)
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "catalog", "request", "invalid catalog url", err)
	}

	now := c.now()
	values := endpoint.Query()
	for k, v := range c.params {
		values.Set(k, v)
	}
	for k, v := range query {
		values[k] = v
	}
	values.Set("_rticket", strconv.FormatInt(now.UnixMilli(), 10))
	endpoint.RawQuery = values.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode catalog request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Khronos", strconv.FormatInt(now.Unix(), 10))
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrTransient, "catalog", path, "failed to fetch", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return services.Wrap(services.ErrTransient, "catalog", path, "failed to fetch", err)
	}
	c.logger.Debug("catalog request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "catalog", path, "failed to fetch", fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(data, target); err != nil {
		return services.Wrap(services.ErrProtocol, "catalog", path, "failed to fetch", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
