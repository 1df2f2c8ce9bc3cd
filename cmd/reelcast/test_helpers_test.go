package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelcast/internal/config"
	"reelcast/internal/daemon"
	"reelcast/internal/logging"
	"reelcast/internal/store"
	"reelcast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	daemon     *daemon.Daemon
	configPath string
	apiAddr    string
}

// newFakeBackend serves the catalog API, its media and the upload platform.
func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	var uploads int
	mux := http.NewServeMux()
	mux.HandleFunc("/novel/player/video_detail/v1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"video_data":{
			"series_title":"Night Train","series_intro":"A ride","series_cover":"%[1]s/img/cover.jpg","episode_cnt":2,
			"video_list":[
				{"vid":"v1","episode_cover":"%[1]s/img/e1.jpg","title":"Boarding","vid_index":1,"duration":95},
				{"vid":"v2","episode_cover":"%[1]s/img/e2.jpg","title":"Tunnel","vid_index":2,"duration":80}
			]}}}`, srv.URL)
	})
	mux.HandleFunc("/i18n_novel/bookmall/cell/change/v1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"cell":{"books":[
			{"book_id":7450001,"book_name":"Night Train","abstract":"A ride","thumb_url":"%[1]s/img/cover.jpg","serial_count":"2"}
		]}}}`, srv.URL)
	})
	mux.HandleFunc("/novel/player/video_model/v1/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprintf(w, `{"data":{"main_url":"%s/cdn/%v.mp4"}}`, srv.URL, body["video_id"])
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, 64))
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0x42}, 1024))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("duration") != "":
		case q.Get("thumbnails") != "":
			_, _ = io.WriteString(w, `{"1":"data:thumb"}`)
		case q.Get("form") == "1":
			_, _ = io.WriteString(w, "ok")
		default:
			_, _ = io.Copy(io.Discard, r.Body)
			uploads++
			fmt.Fprintf(w, "vid%d", uploads)
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RUMBLE_COOKIE", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	backend := newFakeBackend(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithCatalogURL(backend.URL),
		testsupport.WithPublisherURL(backend.URL+"/upload"),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	svc, err := daemon.BuildServices(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildServices: %v", err)
	}
	d, err := daemon.New(cfg, st, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		daemon:     d,
		configPath: configPath,
		apiAddr:    d.Addr(),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, args, e.apiAddr, e.configPath)
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if apiAddr != "" {
		flags = append(flags, "--api", apiAddr)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
