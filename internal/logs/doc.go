// Package logs reads the daemon log files for `reelcast logs`.
//
// Tail returns the last lines of a file and an offset to resume from;
// follow mode polls from that offset until new lines arrive, restarting
// from the top when the file is truncated or replaced. Filter narrows the
// lines by component, level or substring and understands both the console
// and the JSON log formats.
package logs
