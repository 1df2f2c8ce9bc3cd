package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reelcast/internal/catalog"
	"reelcast/internal/services"
)

func newClient(t *testing.T, handler http.HandlerFunc) *catalog.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return catalog.NewClient(srv.URL,
		map[string]string{"Cookie": "install_id=1", "Age-Range": "2"},
		map[string]string{"aid": "645713"},
		catalog.WithClock(func() time.Time { return time.Unix(1765347070, 0) }),
	)
}

func TestSearchMapsBooks(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/i18n_novel/bookmall/cell/change/v1/" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("offset") != "20" || q.Get("limit") != "10" || q.Get("aid") != "645713" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("_rticket") != "1765347070000" {
			t.Errorf("unexpected _rticket %q", q.Get("_rticket"))
		}
		if r.Header.Get("Cookie") != "install_id=1" || r.Header.Get("X-Khronos") != "1765347070" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		_, _ = io.WriteString(w, `{"data":{"cell":{"books":[
			{"book_id":"7450001","thumb_url":"https://img/1.jpg","book_name":"Night Train","abstract":"A ride","serial_count":"12"},
			{"book_id":7450002,"thumb_url":"https://img/2.jpg","book_name":"Second","serial_count":3}
		]}}}`)
	})

	items, err := client.Search(context.Background(), catalog.SearchOptions{Offset: 20, Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].SeriesID != "7450001" || items[0].Title != "Night Train" || items[0].EpisodeCount != 12 {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].SeriesID != "7450002" || items[1].Intro != "" || items[1].EpisodeCount != 3 {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}

func TestFetchDetailAppliesDefaults(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/novel/player/video_detail/v1/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["series_id"] != "7450001" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = io.WriteString(w, `{"data":{"video_data":{
			"series_title":"Night Train","series_intro":"A ride","series_cover":"https://img/c.jpg","episode_cnt":2,
			"video_list":[
				{"vid":"v1","episode_cover":"https://img/e1.jpg","title":"Boarding","vid_index":1,"duration":95},
				{"vid":"v2","episode_cover":"https://img/e2.jpg","vid_index":2,"duration":80,"video_width":1080,"video_height":1920}
			]}}}`)
	})

	detail, err := client.FetchDetail(context.Background(), "7450001")
	if err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if detail.Title != "Night Train" || detail.EpisodeCount != 2 || len(detail.Episodes) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	first := detail.Episodes[0]
	if first.Width != 720 || first.Height != 1080 || first.Duration != 95 {
		t.Fatalf("expected default dimensions, got %+v", first)
	}
	if detail.Episodes[1].Width != 1080 || detail.Episodes[1].Height != 1920 {
		t.Fatalf("unexpected second episode %+v", detail.Episodes[1])
	}
}

func TestFetchDetailMissingVideoData(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{}}`)
	})
	_, err := client.FetchDetail(context.Background(), "1")
	if err == nil || !strings.Contains(err.Error(), "Failed to fetch series data") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestFetchStreamURL(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/novel/player/video_model/v1/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["video_id"] == "missing" {
			_, _ = io.WriteString(w, `{"data":{}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"main_url":"https://cdn/v1.mp4"}}`)
	})

	stream, err := client.FetchStreamURL(context.Background(), "v1")
	if err != nil {
		t.Fatalf("FetchStreamURL: %v", err)
	}
	if stream.URL != "https://cdn/v1.mp4" || stream.Definition != "720p" || stream.Width != 720 || stream.Height != 1280 {
		t.Fatalf("unexpected stream %+v", stream)
	}

	_, err = client.FetchStreamURL(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrNoStream) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no-stream error, got %v", err)
	}
}

func TestClientErrors(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Search(context.Background(), catalog.SearchOptions{})
	if err == nil || !strings.Contains(err.Error(), "failed to fetch") || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("unexpected error %v", err)
	}

	unconfigured := catalog.NewClient("", nil, nil)
	if _, err := unconfigured.FetchDetail(context.Background(), "1"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := client.FetchDetail(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
