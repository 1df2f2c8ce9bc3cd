// Package apiclient is the CLI's client for the daemon HTTP API.
//
// Every method maps to one route and decodes the shared DTOs from package
// api. Non-2xx replies become errors carrying the daemon's message, marked
// with the services error kind that matches the status code so callers can
// branch on errors.Is. A dial failure is reported through IsUnavailable.
package apiclient
