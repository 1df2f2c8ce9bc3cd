// Package notifications delivers reelcast events via ntfy.
//
// NewService returns an ntfy-backed Service when a topic is configured and a
// no-op otherwise, so callers publish unconditionally. Event groups can be
// muted individually through the publish, queue and errors toggles.
package notifications
