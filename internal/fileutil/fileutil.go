package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrSizeMismatch reports a body shorter or longer than its declared size.
var ErrSizeMismatch = errors.New("size mismatch")

// WriteResult describes a completed atomic write.
type WriteResult struct {
	Bytes  int64
	SHA256 string
}

// WriteAtomic streams r into dst through a temp file in the same directory and
// renames it into place, so readers never observe a partial file. When
// expectedSize is non-negative a short or long body is rejected and nothing is
// written. Parent directories are created as needed.
func WriteAtomic(dst string, r io.Reader, expectedSize int64) (WriteResult, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return WriteResult{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write temp file: %w", err)
	}
	if expectedSize >= 0 && written != expectedSize {
		return WriteResult{}, fmt.Errorf("%w: expected %d bytes, received %d bytes", ErrSizeMismatch, expectedSize, written)
	}
	if err := tmp.Sync(); err != nil {
		return WriteResult{}, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return WriteResult{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return WriteResult{}, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return WriteResult{Bytes: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}
