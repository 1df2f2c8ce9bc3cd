package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelcast/internal/config"
	"reelcast/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPublisher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "session=good" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckPublisher(context.Background(), srv.URL, "session=good"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckPublisher(context.Background(), srv.URL, "session=bad"); result.Passed || !strings.Contains(result.Detail, "session rejected") {
		t.Fatalf("expected rejected session, got %+v", result)
	}
	if result := CheckPublisher(context.Background(), srv.URL, ""); result.Passed || !strings.Contains(result.Detail, "cookie missing") {
		t.Fatalf("expected missing cookie, got %+v", result)
	}
}

func TestCheckCatalogAcceptsAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if result := CheckCatalog(context.Background(), srv.URL); !result.Passed {
		t.Fatalf("expected reachable catalog, got %+v", result)
	}
	if result := CheckCatalog(context.Background(), ""); result.Passed {
		t.Fatal("expected failure without base url")
	}
}

func TestCheckCatalogUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	result := CheckCatalog(context.Background(), target)
	if result.Passed || !strings.HasPrefix(result.Detail, "unreachable") {
		t.Fatalf("expected unreachable, got %+v", result)
	}
}

func TestCheckLLMRequiresKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLM{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAllSkipsDisabledEnrichment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(srv.URL), testsupport.WithPublisherURL(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 6 {
		t.Fatalf("expected 6 checks, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.Name == "Enrichment LLM" {
			t.Fatal("LLM check should be skipped without an api key")
		}
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed || !strings.Contains(result.Detail, "GiB free") {
		t.Fatalf("expected pass with no minimum, got %+v", result)
	}
	if result := CheckFreeSpace("space", dir, 1<<62); result.Passed || !strings.Contains(result.Detail, "need") {
		t.Fatalf("expected failure for impossible minimum, got %+v", result)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 0); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}
