package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizePublisher()
	c.normalizeDownloads()
	c.normalizeLLM()
	c.normalizeScheduler()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = ExpandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REELCAST_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		if value, ok := os.LookupEnv("REELCAST_CATALOG_URL"); ok {
			c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeoutSeconds
	}
}

func (c *Config) normalizePublisher() {
	c.Publisher.BaseURL = strings.TrimSpace(c.Publisher.BaseURL)
	if c.Publisher.BaseURL == "" {
		c.Publisher.BaseURL = defaultPublisherBaseURL
	}
	c.Publisher.Cookie = strings.TrimSpace(c.Publisher.Cookie)
	if c.Publisher.Cookie == "" {
		if value, ok := os.LookupEnv("REELCAST_PUBLISHER_COOKIE"); ok {
			c.Publisher.Cookie = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("RUMBLE_COOKIE"); ok {
			c.Publisher.Cookie = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Publisher.UserAgent) == "" {
		c.Publisher.UserAgent = defaultBrowserUserAgent
	}
	if strings.TrimSpace(c.Publisher.Origin) == "" {
		c.Publisher.Origin = defaultPublisherOrigin
	}
	c.Publisher.ChannelID = defaultString(c.Publisher.ChannelID, defaultPublisherChannelID)
	c.Publisher.SiteChannelID = defaultString(c.Publisher.SiteChannelID, defaultPublisherSiteChannelID)
	c.Publisher.MediaChannelID = defaultString(c.Publisher.MediaChannelID, defaultPublisherMediaChannelID)
	c.Publisher.URLDomain = defaultString(c.Publisher.URLDomain, defaultPublisherURLDomain)
	c.Publisher.PublicURLBase = defaultString(c.Publisher.PublicURLBase, defaultPublisherPublicURLBase)
	if c.Publisher.RequestTimeoutSeconds <= 0 {
		c.Publisher.RequestTimeoutSeconds = defaultPublisherRequestTimeout
	}
	if c.Publisher.TransferTimeoutSeconds < 0 {
		c.Publisher.TransferTimeoutSeconds = 0
	}
}

func (c *Config) normalizeDownloads() {
	if strings.TrimSpace(c.Downloads.UserAgent) == "" {
		c.Downloads.UserAgent = defaultBrowserUserAgent
	}
	if c.Downloads.TimeoutSeconds <= 0 {
		c.Downloads.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	if c.Downloads.MaxAttempts <= 0 {
		c.Downloads.MaxAttempts = 1
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = defaultString(c.LLM.BaseURL, defaultLLMBaseURL)
	c.LLM.Model = defaultString(c.LLM.Model, defaultLLMModel)
	c.LLM.Referer = defaultString(c.LLM.Referer, defaultLLMReferer)
	c.LLM.Title = defaultString(c.LLM.Title, defaultLLMTitle)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Cron = strings.Join(strings.Fields(c.Scheduler.Cron), " ")
	if c.Scheduler.Cron == "" {
		c.Scheduler.Cron = defaultSchedulerCron
	}
	c.Scheduler.Timezone = defaultString(c.Scheduler.Timezone, defaultSchedulerTimezone)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
