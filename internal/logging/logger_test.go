package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelcast/internal/config"
	"reelcast/internal/logging"
	"reelcast/internal/services"
)

func TestNewRunLoggerWritesRunFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"

	run, err := logging.NewRunLogger(&cfg, "20260101T000000.000Z", "", false)
	if err != nil {
		t.Fatalf("NewRunLogger returned error: %v", err)
	}
	want := filepath.Join(cfg.Paths.LogDir, "reelcast-20260101T000000.000Z.log")
	if run.Path != want {
		t.Fatalf("unexpected run log path %q", run.Path)
	}
	run.Logger.Info("filtered by config level")
	run.Logger.Warn("hello from test", logging.String(logging.FieldComponent, "test"))

	content, err := os.ReadFile(run.Path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "test: hello from test") {
		t.Fatalf("expected component prefix in log line, got %q", content)
	}
	if strings.Contains(string(content), "filtered by config level") {
		t.Fatalf("expected info line filtered at warn level, got %q", content)
	}
}

func TestNewRunLoggerLevelOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	run, err := logging.NewRunLogger(&cfg, "r1", "info", false)
	if err != nil {
		t.Fatalf("NewRunLogger returned error: %v", err)
	}
	run.Logger.Info("override wins")
	content, _ := os.ReadFile(run.Path)
	if !strings.Contains(string(content), "override wins") {
		t.Fatalf("expected override level to apply, got %q", content)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without source", logging.String("title", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no source information in info logs, got %q", line)
	}
	if !strings.Contains(line, `title="two words"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if !strings.Contains(line, " INFO ") {
		t.Fatalf("expected INFO label, got %q", line)
	}
}

func TestDebugLevelFiltersAndAddsSource(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("debug detail")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected source in debug logs, got %q", content)
	}

	quiet, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{logPath + ".quiet"}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	quiet.Info("should be dropped")
	if data, _ := os.ReadFile(logPath + ".quiet"); len(data) != 0 {
		t.Fatalf("expected info line filtered at warn level, got %q", data)
	}
}

func TestJSONLoggerNormalizesKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("json line", logging.Int64(logging.FieldTaskID, 7))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload[logging.FieldTaskID] != float64(7) {
		t.Fatalf("expected task_id 7, got %v", payload[logging.FieldTaskID])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsIdentifiers(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithTaskID(context.Background(), 42)
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, logger).Info("tagged")

	content, _ := os.ReadFile(logPath)
	line := string(content)
	if !strings.Contains(line, "task_id=42") || !strings.Contains(line, "correlation_id=req-1") {
		t.Fatalf("expected context fields, got %q", line)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "thumbnail missing", "thumbnail_missing",
		logging.String(logging.FieldImpact, "episode not published"))

	content, _ := os.ReadFile(logPath)
	line := string(content)
	for _, want := range []string{"event_type=thumbnail_missing", "error_hint=", `impact="episode not published"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestCleanupOldLogsRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "reelcastd-old.log")
	newPath := filepath.Join(dir, "reelcastd-new.log")
	keepPath := filepath.Join(dir, "reelcastd-current.log")
	for _, p := range []string{oldPath, newPath, keepPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, keepPath} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 3, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "reelcastd-*.log",
		Exclude: []string{keepPath},
	})
	if removed != 1 {
		t.Fatalf("expected 1 pruned log, got %d", removed)
	}
	if n := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir}); n != 0 {
		t.Fatalf("zero retention should keep everything, removed %d", n)
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{newPath, keepPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}
}
