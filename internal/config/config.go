package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog contains connection settings for the upstream content catalog.
type Catalog struct {
	BaseURL        string            `toml:"base_url"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Headers        map[string]string `toml:"headers"`
	Params         map[string]string `toml:"params"`
}

// Publisher contains settings for the external video publishing platform.
type Publisher struct {
	BaseURL                string `toml:"base_url"`
	Cookie                 string `toml:"cookie"`
	UserAgent              string `toml:"user_agent"`
	Origin                 string `toml:"origin"`
	ChannelID              string `toml:"channel_id"`
	SiteChannelID          string `toml:"site_channel_id"`
	MediaChannelID         string `toml:"media_channel_id"`
	URLDomain              string `toml:"url_domain"`
	PublicURLBase          string `toml:"public_url_base"`
	RequestTimeoutSeconds  int    `toml:"request_timeout_seconds"`
	TransferTimeoutSeconds int    `toml:"transfer_timeout_seconds"`
}

// Downloads contains settings for the media fetcher.
type Downloads struct {
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// LLM contains connection settings for the OpenRouter-compatible chat API.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enrichment toggles the optional LLM-backed text enrichment calls.
type Enrichment struct {
	Paraphrase bool `toml:"paraphrase"`
	Tags       bool `toml:"tags"`
}

// Scheduler contains the recurring publish schedule.
type Scheduler struct {
	Cron      string `toml:"cron"`
	Timezone  string `toml:"timezone"`
	Autostart bool   `toml:"autostart"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Publish        bool   `toml:"publish"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for reelcast.
//
// Configuration sections by subsystem:
//   - Paths: data, media and log directories plus the API bind address
//   - Catalog: upstream catalog client
//   - Publisher: publishing platform credentials and channel ids
//   - Downloads: media fetcher behaviour
//   - LLM / Enrichment: optional paraphrase and tag generation
//   - Scheduler: cron expression, timezone and autostart
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Publisher     Publisher     `toml:"publisher"`
	Downloads     Downloads     `toml:"downloads"`
	LLM           LLM           `toml:"llm"`
	Enrichment    Enrichment    `toml:"enrichment"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reelcast.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reelcastd.lock")
}

// EnsureDirectories creates the data, media and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// GetLLM returns the LLM section with surrounding whitespace removed.
func (c *Config) GetLLM() LLM {
	l := c.LLM
	for _, f := range []*string{&l.APIKey, &l.BaseURL, &l.Model, &l.Referer, &l.Title} {
		*f = strings.TrimSpace(*f)
	}
	return l
}

// EnrichmentEnabled reports whether any LLM-backed enrichment should run.
func (c *Config) EnrichmentEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != "" && (c.Enrichment.Paraphrase || c.Enrichment.Tags)
}
