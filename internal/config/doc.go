// Package config loads, normalizes, and validates reelcast configuration.
//
// Configuration is read from TOML (default ~/.config/reelcast/config.toml or
// ./reelcast.toml), merged over Default(), expanded (~ and relative paths),
// and filled from environment fallbacks for credentials. Validate rejects
// unusable values such as a malformed cron expression or unknown timezone so
// the daemon fails fast instead of at the first scheduled tick.
package config
