package config

const (
	defaultConfigPath              = "~/.config/reelcast/config.toml"
	defaultDataDir                 = "~/.local/share/reelcast"
	defaultMediaDir                = "~/.local/share/reelcast/media"
	defaultLogDir                  = "~/.local/share/reelcast/logs"
	defaultAPIBind                 = "127.0.0.1:7590"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultLogRetentionDays        = 30
	defaultCatalogTimeoutSeconds   = 30
	defaultPublisherBaseURL        = "https://web22.rumble.com/upload.php"
	defaultPublisherOrigin         = "https://rumble.com"
	defaultPublisherURLDomain      = "rumble.com"
	defaultPublisherPublicURLBase  = "https://rumble.com/v"
	defaultPublisherChannelID      = "7830376"
	defaultPublisherSiteChannelID  = "15"
	defaultPublisherMediaChannelID = "892"
	defaultPublisherRequestTimeout = 60
	defaultBrowserUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultDownloadTimeoutSeconds  = 1800
	defaultDownloadMaxAttempts     = 3
	defaultLLMBaseURL              = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                = "google/gemini-2.5-flash"
	defaultLLMReferer              = "https://github.com/reelcast/reelcast"
	defaultLLMTitle                = "reelcast"
	defaultLLMTimeoutSeconds       = 60
	defaultSchedulerCron           = "0 */6 * * *"
	defaultSchedulerTimezone       = "UTC"
	defaultNotifyRequestTimeout    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Catalog: Catalog{
			TimeoutSeconds: defaultCatalogTimeoutSeconds,
		},
		Publisher: Publisher{
			BaseURL:               defaultPublisherBaseURL,
			UserAgent:             defaultBrowserUserAgent,
			Origin:                defaultPublisherOrigin,
			ChannelID:             defaultPublisherChannelID,
			SiteChannelID:         defaultPublisherSiteChannelID,
			MediaChannelID:        defaultPublisherMediaChannelID,
			URLDomain:             defaultPublisherURLDomain,
			PublicURLBase:         defaultPublisherPublicURLBase,
			RequestTimeoutSeconds: defaultPublisherRequestTimeout,
		},
		Downloads: Downloads{
			UserAgent:      defaultBrowserUserAgent,
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
			MaxAttempts:    defaultDownloadMaxAttempts,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Enrichment: Enrichment{
			Paraphrase: true,
			Tags:       true,
		},
		Scheduler: Scheduler{
			Cron:     defaultSchedulerCron,
			Timezone: defaultSchedulerTimezone,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Publish:        true,
			Queue:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
