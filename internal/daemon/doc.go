// Package daemon coordinates the long-running reelcast process.
//
// It wires configuration, the store, the download processor, the uploads
// service and the scheduler into a single lifecycle with flock-based locking,
// so exactly one process acts as the scheduling authority. The daemon exposes
// an HTTP API (bearer-token protected when api_token is set) that the CLI
// uses for every operation.
//
// Keep orchestration here: domain logic lives in the catalog, downloads,
// uploads and scheduler packages while the daemon focuses on startup,
// shutdown and request routing.
package daemon
