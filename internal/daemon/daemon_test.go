package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelcast/internal/api"
	"reelcast/internal/config"
	"reelcast/internal/daemon"
	"reelcast/internal/logging"
	"reelcast/internal/store"
	"reelcast/internal/testsupport"
)

// localConfig points the catalog and publisher at a local server so the
// startup checks never leave the host.
func localConfig(t *testing.T) *config.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return testsupport.NewConfig(t,
		testsupport.WithCatalogURL(srv.URL),
		testsupport.WithPublisherURL(srv.URL+"/upload"),
	)
}

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *store.Store) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	svc, err := daemon.BuildServices(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildServices: %v", err)
	}
	d, err := daemon.New(cfg, st, svc, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, st
}

func TestDaemonStartStop(t *testing.T) {
	cfg := localConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight results")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	resp, err := http.Get("http://" + d.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var body api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Running || body.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected status body %+v", body)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondInstanceFailsOnLock(t *testing.T) {
	cfg := localConfig(t)
	first, _ := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	svc2Store := testsupport.MustOpenStore(t, cfg)
	svc2, err := daemon.BuildServices(cfg, svc2Store, logging.NewNop())
	if err != nil {
		t.Fatalf("BuildServices: %v", err)
	}
	second, err := daemon.New(cfg, svc2Store, svc2, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("expected start after release, got %v", err)
	}
	second.Stop()
}

func TestStartFailsInterruptedTasks(t *testing.T) {
	cfg := localConfig(t)
	cfg.Paths.APIBind = ""
	d, st := newDaemon(t, cfg)
	series, _ := testsupport.SeedSeries(t, st, "s1", "Night Train", 1)
	ctx := context.Background()
	id, err := st.CreateTask(ctx, store.NewTask{
		SeriesID: series.ID,
		Type:     store.TaskSeriesCover,
		URL:      "https://img.example.com/c.jpg",
		Filename: "c.jpg",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := st.ClaimNextPending(ctx); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Addr() != "" {
		t.Fatalf("expected no api listener, got %q", d.Addr())
	}
	task, err := st.TaskByID(ctx, id)
	if err != nil {
		t.Fatalf("TaskByID: %v", err)
	}
	if task.Status != store.TaskFailed || task.ErrorMessage != "Interrupted by daemon restart" {
		t.Fatalf("unexpected task %+v", task)
	}
}
