// Package scheduler publishes one episode per tick.
//
// A tick finds the most recently published episode, picks the next episode
// of the same series by index_sequence and hands it to the uploads service.
// The first episode of a series is never chosen automatically. Ticks come
// from a robfig/cron timer or from Trigger; a tick that arrives while a run
// is in flight is skipped rather than queued.
package scheduler
