// Package catalog talks to the upstream short-drama catalog and imports
// series into the local store.
//
// Client exposes the three catalog calls the rest of the system needs:
// Search lists series, FetchDetail returns a series with its episode list and
// FetchStreamURL resolves a playable video URL for one episode. Device and
// session headers are opaque configuration values copied onto every request.
//
// Importer turns a catalog detail into Series and Episode rows, passing the
// title and intro through the configured paraphraser first.
package catalog
