// Package downloads advances the durable download queue and plans the task
// batches that fill it.
//
// Processor performs exactly one claim, execute and finalize cycle per
// ProcessNext call. Claims are atomic in the store, so ProcessNext is safe to
// call from any number of goroutines or processes at once. A task that fails
// stays failed until it is explicitly requeued.
//
// Planner builds the batch for a series: the series cover, every episode
// cover, then every episode video whose stream URL resolves.
package downloads
