// Package logging builds the slog loggers shared by the reelcast CLI and daemon.
//
// Console output is a single-line "ts LEVEL component: msg key=value" layout,
// JSON output uses the stdlib handler with normalized keys. Context helpers
// tag lines with task, episode and scheduler run identifiers carried by
// services context values.
package logging
