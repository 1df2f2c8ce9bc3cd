// Package services defines shared utilities consumed by the download pipeline,
// the publisher and the scheduler.
//
// It carries context helpers that stamp task, episode, run and correlation
// identifiers for logging, plus the error markers and Wrap helper used to
// decide whether a failure is worth retrying.
package services
