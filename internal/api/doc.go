// Package api defines wire-format types and converters for the daemon's HTTP
// API. It translates store models into transport-friendly DTOs that the CLI
// and other consumers can render without coupling to internal types.
//
// # Key Types
//
// Series, Episode, Task and PublishRecord mirror the store rows. QueueStatus
// bundles task counts with the task list for one series. DaemonStatus
// aggregates runtime information, scheduler state and preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums are exposed as lowercase
// strings and timestamps use RFC3339 with milliseconds. Request bodies live
// here too so the client and server share one definition.
package api
