package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"reelcast/internal/api"
	"reelcast/internal/scheduler"
	"reelcast/internal/services"
	"reelcast/internal/uploads"
)

// ErrUnavailable reports that no daemon is listening.
var ErrUnavailable = errors.New("reelcast daemon unavailable")

// Client talks to a running daemon.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New builds a client for the daemon bound at bind. An empty bind yields a
// nil client whose methods return ErrUnavailable.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api bind: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		// No timeout: queue processing and uploads run until the daemon replies.
		http: &http.Client{},
	}, nil
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// ImportSeries imports a catalog series.
func (c *Client) ImportSeries(ctx context.Context, catalogID string) (api.ImportSeriesResponse, error) {
	var out api.ImportSeriesResponse
	err := c.do(ctx, http.MethodPost, "/api/series", nil, api.ImportSeriesRequest{SeriesID: catalogID}, &out)
	return out, err
}

// ListSeries lists stored series.
func (c *Client) ListSeries(ctx context.Context) ([]api.Series, error) {
	var out api.SeriesListResponse
	err := c.do(ctx, http.MethodGet, "/api/series", nil, nil, &out)
	return out.Series, err
}

// SeriesDetail fetches a series with its episodes.
func (c *Client) SeriesDetail(ctx context.Context, id int64) (api.SeriesDetailResponse, error) {
	var out api.SeriesDetailResponse
	err := c.do(ctx, http.MethodGet, seriesPath(id), nil, nil, &out)
	return out, err
}

// DeleteSeries removes a series with its episodes, tasks and publish records.
func (c *Client) DeleteSeries(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, seriesPath(id), nil, nil, &api.DeleteResponse{})
}

// Enqueue adds explicit tasks, or a planned batch when req.Tasks is empty.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.EnqueueResponse, error) {
	var out api.EnqueueResponse
	err := c.do(ctx, http.MethodPost, "/api/queue", nil, req, &out)
	return out, err
}

// QueueStatus fetches the tasks of a series.
func (c *Client) QueueStatus(ctx context.Context, seriesID int64) (api.QueueStatus, error) {
	var out api.QueueStatus
	err := c.do(ctx, http.MethodGet, "/api/queue", seriesQuery(seriesID), nil, &out)
	return out, err
}

// ClearQueue removes every task of a series.
func (c *Client) ClearQueue(ctx context.Context, seriesID int64) (int64, error) {
	var out api.ClearResponse
	err := c.do(ctx, http.MethodDelete, "/api/queue", seriesQuery(seriesID), nil, &out)
	return out.Removed, err
}

// Requeue resets failed tasks of a series to pending.
func (c *Client) Requeue(ctx context.Context, seriesID int64, ids ...int64) (int64, error) {
	var out api.RequeueResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/requeue", nil, api.RequeueRequest{SeriesID: seriesID, IDs: ids}, &out)
	return out.Requeued, err
}

// Process runs one queue cycle. With drain set the daemon keeps processing
// until the queue is empty or limit tasks ran.
func (c *Client) Process(ctx context.Context, drain bool, limit int) (api.ProcessResponse, error) {
	query := url.Values{}
	if drain {
		query.Set("drain", "1")
		if limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}
	}
	var out api.ProcessResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/process", query, nil, &out)
	return out, err
}

// SchedulerStatus fetches the scheduler state.
func (c *Client) SchedulerStatus(ctx context.Context) (scheduler.Status, error) {
	var out scheduler.Status
	err := c.do(ctx, http.MethodGet, "/api/scheduler", nil, nil, &out)
	return out, err
}

// StartScheduler arms the scheduler timer.
func (c *Client) StartScheduler(ctx context.Context) (api.SchedulerActionResponse, error) {
	var out api.SchedulerActionResponse
	err := c.do(ctx, http.MethodPost, "/api/scheduler/start", nil, nil, &out)
	return out, err
}

// StopScheduler disarms the scheduler timer.
func (c *Client) StopScheduler(ctx context.Context) (api.SchedulerActionResponse, error) {
	var out api.SchedulerActionResponse
	err := c.do(ctx, http.MethodPost, "/api/scheduler/stop", nil, nil, &out)
	return out, err
}

// RunScheduler triggers one scheduled upload now.
func (c *Client) RunScheduler(ctx context.Context) (scheduler.RunResult, error) {
	var out scheduler.RunResult
	err := c.do(ctx, http.MethodPost, "/api/scheduler/run", nil, nil, &out)
	return out, err
}

// Publish uploads one episode. Empty title or description use the
// generated text.
func (c *Client) Publish(ctx context.Context, req api.PublishRequest) (uploads.Outcome, error) {
	var out uploads.Outcome
	err := c.do(ctx, http.MethodPost, "/api/publish", nil, req, &out)
	return out, err
}

// PublishStatus fetches the publish state of an episode.
func (c *Client) PublishStatus(ctx context.Context, episodeID int64) (uploads.Status, error) {
	var out uploads.Status
	query := url.Values{"episode": {strconv.FormatInt(episodeID, 10)}}
	err := c.do(ctx, http.MethodGet, "/api/publish", query, nil, &out)
	return out, err
}

// PublishRecords lists publish records, optionally filtered by status.
func (c *Client) PublishRecords(ctx context.Context, statuses ...string) ([]api.PublishRecord, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", status)
	}
	var out api.PublishListResponse
	err := c.do(ctx, http.MethodGet, "/api/publish", query, nil, &out)
	return out.Records, err
}

// SearchCatalog lists importable catalog series. Zero offset, limit or an
// empty tag use the catalog defaults.
func (c *Client) SearchCatalog(ctx context.Context, tag string, offset, limit int) (api.CatalogSearchResponse, error) {
	query := url.Values{}
	if tag != "" {
		query.Set("tag", tag)
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out api.CatalogSearchResponse
	err := c.do(ctx, http.MethodGet, "/api/catalog", query, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrProtocol, "apiclient", "decode", "invalid daemon response", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload api.ErrorResponse
	message := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	err := errors.New(message)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Mark(services.ErrConfiguration, fmt.Errorf("%s (check paths.api_token)", message))
	case resp.StatusCode == http.StatusNotFound:
		return services.Mark(services.ErrNotFound, err)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return services.Mark(services.ErrConfiguration, err)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return services.Mark(services.ErrTimeout, err)
	case resp.StatusCode == http.StatusBadGateway:
		return services.Mark(services.ErrExternalTool, err)
	case resp.StatusCode < http.StatusInternalServerError:
		return services.Mark(services.ErrValidation, err)
	default:
		return err
	}
}

func seriesPath(id int64) string {
	return "/api/series/" + strconv.FormatInt(id, 10)
}

func seriesQuery(id int64) url.Values {
	return url.Values{"series": {strconv.FormatInt(id, 10)}}
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
