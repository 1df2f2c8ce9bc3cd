package media_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelcast/internal/media"
	"reelcast/internal/services"
)

func newFetcher(t *testing.T, opts ...media.Option) *media.Fetcher {
	t.Helper()
	opts = append([]media.Option{media.WithRetry(3, time.Millisecond, 5*time.Millisecond)}, opts...)
	return media.NewFetcher(t.TempDir(), opts...)
}

func TestFetchStoresFileAndReturnsReference(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	f := newFetcher(t, media.WithUserAgent("Mozilla/5.0 (test)"))
	ref, err := f.Fetch(context.Background(), media.FetchRequest{
		URL:      srv.URL + "/cover.jpg",
		SeriesID: 7,
		Filename: "Night Train_cover.jpg",
		Kind:     media.KindImage,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ref != "/downloads/7/Night Train_cover.jpg" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if gotUA != "Mozilla/5.0 (test)" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	path, err := f.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != filepath.Join(f.Root(), "downloads", "7", "Night Train_cover.jpg") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected file contents %q (err=%v)", data, err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("video"))
	}))
	defer srv.Close()

	f := newFetcher(t)
	if _, err := f.Fetch(context.Background(), media.FetchRequest{
		URL: srv.URL, SeriesID: 1, Filename: "a_ep1.mp4", Kind: media.KindVideo,
	}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), media.FetchRequest{
		URL: srv.URL, SeriesID: 1, Filename: "a_ep1.mp4", Kind: media.KindVideo,
	})
	if err == nil || err.Error() != "Failed to fetch file: Service Unavailable" {
		t.Fatalf("unexpected error %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFetcher(t)
	_, err := f.Fetch(context.Background(), media.FetchRequest{
		URL: srv.URL, SeriesID: 1, Filename: "x.jpg",
	})
	if err == nil || err.Error() != "Failed to fetch file: Not Found" {
		t.Fatalf("unexpected error %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if _, statErr := os.Stat(filepath.Join(f.Root(), "downloads", "1", "x.jpg")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file on failure, stat err=%v", statErr)
	}
}

func TestFetchDoesNotRetryLocalWriteFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("video"))
	}))
	defer srv.Close()

	f := newFetcher(t)
	// A regular file where the series directory belongs makes every write fail.
	blocker := filepath.Join(f.Root(), "downloads", "1")
	if err := os.MkdirAll(filepath.Dir(blocker), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.Fetch(context.Background(), media.FetchRequest{
		URL: srv.URL, SeriesID: 1, Filename: "a_ep1.mp4", Kind: media.KindVideo,
	})
	if err == nil || !strings.HasPrefix(err.Error(), "Failed to store file") {
		t.Fatalf("unexpected error %v", err)
	}
	if errors.Is(err, services.ErrTransient) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected non-transient local failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestFetchRetriesTruncatedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Length", "100")
			_, _ = w.Write([]byte("short"))
			return
		}
		_, _ = w.Write([]byte("video"))
	}))
	defer srv.Close()

	f := newFetcher(t)
	ref, err := f.Fetch(context.Background(), media.FetchRequest{
		URL: srv.URL, SeriesID: 1, Filename: "a_ep1.mp4", Kind: media.KindVideo,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a retry after the truncated body, got %d attempts", calls.Load())
	}
	path, err := f.Resolve(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := os.ReadFile(path); string(got) != "video" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestFetchRejectsInvalidInput(t *testing.T) {
	f := newFetcher(t)
	cases := []media.FetchRequest{
		{URL: "", SeriesID: 1, Filename: "a.jpg"},
		{URL: "ftp://host/a.jpg", SeriesID: 1, Filename: "a.jpg"},
		{URL: "https://host/a.jpg", SeriesID: 1, Filename: "../a.jpg"},
		{URL: "https://host/a.jpg", SeriesID: 0, Filename: "a.jpg"},
	}
	for _, req := range cases {
		_, err := f.Fetch(context.Background(), req)
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFetcher(t)
	if _, err := f.Fetch(ctx, media.FetchRequest{URL: srv.URL, SeriesID: 1, Filename: "a.jpg"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	f := newFetcher(t)
	for _, ref := range []string{"/etc/passwd", "/downloads/../../etc/passwd", "downloads/1/a.jpg"} {
		if _, err := f.Resolve(ref); err == nil {
			t.Fatalf("expected error for %q", ref)
		}
	}
	if got := media.Reference(12, "a.mp4"); !strings.HasPrefix(got, "/downloads/12/") {
		t.Fatalf("unexpected reference %q", got)
	}
}
