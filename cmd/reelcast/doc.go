// Package main hosts the reelcast CLI.
//
// The Cobra command tree turns terminal invocations into calls against the
// daemon HTTP API: importing series, planning and processing the download
// queue, publishing episodes and driving the scheduler. The daemon itself
// runs under `reelcast daemon` (or the reelcastd binary). Configuration
// commands and `logs` work without a running daemon.
package main
