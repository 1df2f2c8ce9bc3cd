package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"reelcast/internal/api"
	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/scheduler"
	"reelcast/internal/services"
	"reelcast/internal/store"
	"reelcast/internal/testsupport"
	"reelcast/internal/uploads"
)

// fakeBackend serves the catalog API, its media CDN and the upload platform.
type fakeBackend struct {
	srv *httptest.Server

	mu        sync.Mutex
	transfers int
	published []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/player/video_detail/v1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"video_data":{
			"series_title":"Night Train","series_intro":"A ride","series_cover":"%[1]s/img/cover.jpg","episode_cnt":2,
			"video_list":[
				{"vid":"v1","episode_cover":"%[1]s/img/e1.jpg","title":"Boarding","vid_index":1,"duration":95},
				{"vid":"v2","episode_cover":"%[1]s/img/e2.jpg","title":"Tunnel","vid_index":2,"duration":80}
			]}}}`, b.srv.URL)
	})
	mux.HandleFunc("/i18n_novel/bookmall/cell/change/v1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"cell":{"books":[
			{"book_id":7450001,"book_name":"Night Train","abstract":"A ride","thumb_url":"%[1]s/img/cover.jpg","serial_count":"2"}
		]}}}`, b.srv.URL)
	})
	mux.HandleFunc("/novel/player/video_model/v1/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, `{"data":{"main_url":"%s/cdn/%v.mp4"}}`, b.srv.URL, body["video_id"])
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, 64))
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0x42}, 2048))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("duration") != "":
			w.WriteHeader(http.StatusOK)
		case q.Get("thumbnails") != "":
			_, _ = io.WriteString(w, `{"1":"data:thumb"}`)
		case q.Get("form") == "1":
			_ = r.ParseForm()
			b.mu.Lock()
			b.published = append(b.published, r.PostForm.Get("title"))
			b.mu.Unlock()
			_, _ = io.WriteString(w, "ok")
		default:
			_, _ = io.Copy(io.Discard, r.Body)
			b.mu.Lock()
			b.transfers++
			id := fmt.Sprintf("vid%d", b.transfers)
			b.mu.Unlock()
			_, _ = io.WriteString(w, id)
		}
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*Daemon, *store.Store, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithCatalogURL(backend.srv.URL),
		testsupport.WithPublisherURL(backend.srv.URL + "/upload"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	svc, err := BuildServices(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildServices: %v", err)
	}
	d, err := New(cfg, st, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, st, backend
}

func do(t *testing.T, d *Daemon, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	d.api.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCatalogSearch(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	w := do(t, d, http.MethodGet, "/api/catalog?limit=5&offset=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.CatalogSearchResponse](t, w)
	if len(resp.Items) != 1 || resp.Items[0].SeriesID != "7450001" || resp.Items[0].EpisodeCount != 2 {
		t.Fatalf("unexpected search result %+v", resp)
	}
	if w := do(t, d, http.MethodPost, "/api/catalog", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", w.Code)
	}
}

func TestSeriesImportListShowDelete(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	w := do(t, d, http.MethodPost, "/api/series", api.ImportSeriesRequest{SeriesID: "7450001"})
	if w.Code != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d %s", w.Code, w.Body.String())
	}
	imported := decodeBody[api.ImportSeriesResponse](t, w)
	if imported.Series.Title != "Night Train" || imported.EpisodeCount != 2 {
		t.Fatalf("unexpected import %+v", imported)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	list := decodeBody[api.SeriesListResponse](t, do(t, d, http.MethodGet, "/api/series", nil))
	if len(list.Series) != 1 || list.Series[0].CatalogID != "7450001" {
		t.Fatalf("unexpected list %+v", list)
	}

	id := imported.Series.ID
	w = do(t, d, http.MethodGet, fmt.Sprintf("/api/series/%d", id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("show: expected 200, got %d", w.Code)
	}
	detail := decodeBody[api.SeriesDetailResponse](t, w)
	if len(detail.Episodes) != 2 || detail.Episodes[1].Title != "Tunnel" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if w := do(t, d, http.MethodDelete, fmt.Sprintf("/api/series/%d", id), nil); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := do(t, d, http.MethodGet, fmt.Sprintf("/api/series/%d", id), nil); w.Code != http.StatusNotFound {
		t.Fatalf("show after delete: expected 404, got %d", w.Code)
	}
	if w := do(t, d, http.MethodDelete, fmt.Sprintf("/api/series/%d", id), nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
	if w := do(t, d, http.MethodGet, "/api/series/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}
}

func TestQueuePlanProcessAndPublish(t *testing.T) {
	d, st, backend := newTestDaemon(t)
	imported := decodeBody[api.ImportSeriesResponse](t,
		do(t, d, http.MethodPost, "/api/series", api.ImportSeriesRequest{SeriesID: "7450001"}))
	seriesID := imported.Series.ID

	w := do(t, d, http.MethodPost, "/api/queue", api.EnqueueRequest{SeriesID: seriesID})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: expected 201, got %d %s", w.Code, w.Body.String())
	}
	enq := decodeBody[api.EnqueueResponse](t, w)
	// series cover, two episode covers, two videos
	if enq.Count != 5 || len(enq.Skipped) != 0 {
		t.Fatalf("unexpected enqueue %+v", enq)
	}

	queue := decodeBody[api.QueueStatus](t, do(t, d, http.MethodGet, fmt.Sprintf("/api/queue?series=%d", seriesID), nil))
	if queue.Stats.Pending != 5 || len(queue.Tasks) != 5 {
		t.Fatalf("unexpected queue %+v", queue)
	}

	w = do(t, d, http.MethodPost, "/api/queue/process?drain=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d %s", w.Code, w.Body.String())
	}
	processed := decodeBody[api.ProcessResponse](t, w)
	if processed.Drain == nil || processed.Drain.Succeeded != 5 || processed.Drain.HasMore {
		t.Fatalf("unexpected drain %+v", processed.Drain)
	}

	episodes, err := st.EpisodesBySeries(t.Context(), seriesID)
	if err != nil {
		t.Fatalf("EpisodesBySeries: %v", err)
	}
	w = do(t, d, http.MethodPost, "/api/publish", api.PublishRequest{EpisodeID: episodes[0].ID})
	if w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d %s", w.Code, w.Body.String())
	}
	out := decodeBody[uploads.Outcome](t, w)
	if !out.Success || out.VideoID != "vid1" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(backend.published) != 1 || backend.published[0] != "EPS 1 - Night Train" {
		t.Fatalf("unexpected published titles %v", backend.published)
	}

	status := decodeBody[uploads.Status](t, do(t, d, http.MethodGet, fmt.Sprintf("/api/publish?episode=%d", episodes[0].ID), nil))
	if !status.Uploaded || status.VideoID != "vid1" {
		t.Fatalf("unexpected status %+v", status)
	}

	run := decodeBody[scheduler.RunResult](t, do(t, d, http.MethodPost, "/api/scheduler/run", nil))
	if !run.Success || run.EpisodeNumber != 2 {
		t.Fatalf("unexpected scheduled run %+v", run)
	}

	records := decodeBody[api.PublishListResponse](t, do(t, d, http.MethodGet, "/api/publish?status=published", nil))
	if len(records.Records) != 2 {
		t.Fatalf("expected 2 published records, got %+v", records)
	}

	cleared := decodeBody[api.ClearResponse](t, do(t, d, http.MethodDelete, fmt.Sprintf("/api/queue?series=%d", seriesID), nil))
	if cleared.Removed != 5 {
		t.Fatalf("expected 5 removed tasks, got %d", cleared.Removed)
	}
}

func TestMalformedCountsAreRejected(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	imported := decodeBody[api.ImportSeriesResponse](t,
		do(t, d, http.MethodPost, "/api/series", api.ImportSeriesRequest{SeriesID: "7450001"}))
	seriesID := imported.Series.ID
	if w := do(t, d, http.MethodPost, "/api/queue", api.EnqueueRequest{SeriesID: seriesID}); w.Code != http.StatusCreated {
		t.Fatalf("enqueue: expected 201, got %d %s", w.Code, w.Body.String())
	}

	cases := []struct {
		method, target string
	}{
		{http.MethodPost, "/api/queue/process?drain=1&limit=abc"},
		{http.MethodPost, "/api/queue/process?drain=1&limit=-2"},
		{http.MethodGet, "/api/catalog?limit=ten"},
		{http.MethodGet, "/api/catalog?offset=-1"},
	}
	for _, tc := range cases {
		w := do(t, d, tc.method, tc.target, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d %s", tc.method, tc.target, w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "invalid") {
			t.Fatalf("%s %s: unexpected body %s", tc.method, tc.target, w.Body.String())
		}
	}

	queue := decodeBody[api.QueueStatus](t, do(t, d, http.MethodGet, fmt.Sprintf("/api/queue?series=%d", seriesID), nil))
	if queue.Stats.Pending != 5 {
		t.Fatalf("rejected drain must not process tasks, got %+v", queue.Stats)
	}
}

func TestEnqueueExplicitTasksValidates(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	imported := decodeBody[api.ImportSeriesResponse](t,
		do(t, d, http.MethodPost, "/api/series", api.ImportSeriesRequest{SeriesID: "7450001"}))

	w := do(t, d, http.MethodPost, "/api/queue", api.EnqueueRequest{
		SeriesID: imported.Series.ID,
		Tasks:    []api.TaskInput{{Type: "poster", URL: "https://img.example.com/x.jpg", Filename: "x.jpg"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid task, got %d %s", w.Code, w.Body.String())
	}

	if w := do(t, d, http.MethodPost, "/api/queue", api.EnqueueRequest{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without series, got %d", w.Code)
	}
	if w := do(t, d, http.MethodGet, "/api/queue", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without series query, got %d", w.Code)
	}
}

func TestPublishRejectsMissingVideo(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	imported := decodeBody[api.ImportSeriesResponse](t,
		do(t, d, http.MethodPost, "/api/series", api.ImportSeriesRequest{SeriesID: "7450001"}))
	detail := decodeBody[api.SeriesDetailResponse](t,
		do(t, d, http.MethodGet, fmt.Sprintf("/api/series/%d", imported.Series.ID), nil))

	w := do(t, d, http.MethodPost, "/api/publish", api.PublishRequest{EpisodeID: detail.Episodes[0].ID})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decodeBody[api.ErrorResponse](t, w); resp.Error != "Video not downloaded yet" {
		t.Fatalf("unexpected error %q", resp.Error)
	}

	if w := do(t, d, http.MethodPost, "/api/publish", api.PublishRequest{EpisodeID: 999}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown episode, got %d", w.Code)
	}
}

func TestStatusAndSchedulerLifecycle(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	status := decodeBody[api.DaemonStatus](t, do(t, d, http.MethodGet, "/api/status", nil))
	if status.Running || status.Scheduler.Running || status.Scheduler.Schedule != config.Default().Scheduler.Cron {
		t.Fatalf("unexpected status %+v", status)
	}

	started := decodeBody[api.SchedulerActionResponse](t, do(t, d, http.MethodPost, "/api/scheduler/start", nil))
	if !started.Changed || !started.Status.Running || started.Status.NextRun == nil {
		t.Fatalf("unexpected start %+v", started)
	}
	again := decodeBody[api.SchedulerActionResponse](t, do(t, d, http.MethodPost, "/api/scheduler/start", nil))
	if again.Changed {
		t.Fatal("expected second start to report no change")
	}
	stopped := decodeBody[api.SchedulerActionResponse](t, do(t, d, http.MethodPost, "/api/scheduler/stop", nil))
	if !stopped.Changed || stopped.Status.Running {
		t.Fatalf("unexpected stop %+v", stopped)
	}
	if w := do(t, d, http.MethodPost, "/api/scheduler/pause", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", w.Code)
	}
	if w := do(t, d, http.MethodGet, "/api/scheduler/start", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}

	run := decodeBody[scheduler.RunResult](t, do(t, d, http.MethodPost, "/api/scheduler/run", nil))
	if run.Success || !strings.Contains(run.Message, "manually upload the first episode") {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	d, _, _ := newTestDaemon(t, testsupport.WithAPIToken("secret"))

	if w := do(t, d, http.MethodGet, "/api/status", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	d.api.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") != "req-1" {
		t.Fatalf("expected request id echoed, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.Mark(services.ErrValidation, fmt.Errorf("bad")), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", store.ErrInvalidTask), http.StatusBadRequest},
		{services.Mark(services.ErrNotFound, fmt.Errorf("gone")), http.StatusNotFound},
		{services.Mark(services.ErrConfiguration, fmt.Errorf("cfg")), http.StatusServiceUnavailable},
		{services.Mark(services.ErrTransient, fmt.Errorf("flaky")), http.StatusBadGateway},
		{services.Mark(services.ErrTimeout, fmt.Errorf("slow")), http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
