// Package media downloads remote covers and episode videos into the local
// media directory and maps stored references back to files.
//
// Files live at <media_dir>/downloads/<series id>/<filename>; the database
// stores the reference "/downloads/<series id>/<filename>" so the media
// directory can move without rewriting rows. Transport failures (network
// errors, 429 and 5xx) are retried inside a single Fetch call; HTTP 4xx and
// invalid input fail immediately.
package media
