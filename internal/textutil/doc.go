// Package textutil provides filename sanitization for downloaded media.
package textutil
