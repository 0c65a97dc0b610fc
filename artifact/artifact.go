// Package artifact reads and writes the localization source file that
// l10npatch edits. Every write replaces the file wholesale through a
// temporary file in the same directory followed by a rename, so readers
// never observe a partially written artifact.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned (wrapped) by Read when the file is not valid
// UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Read returns the content of path. The content must be valid UTF-8.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if off := invalidOffset(data); off >= 0 {
		return "", fmt.Errorf("decoding %s at byte %d: %w", path, off, ErrInvalidUTF8)
	}
	return string(data), nil
}

// invalidOffset returns the offset of the first invalid UTF-8 sequence in
// data, or -1.
func invalidOffset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for off := 0; off < len(data); {
		r, size := utf8.DecodeRune(data[off:])
		if r == utf8.RuneError && size == 1 {
			return off
		}
		off += size
	}
	return -1
}

// Write replaces path with content. An existing file keeps its permission
// bits; a new file is created 0644.
func Write(path, content string) error {
	perm := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	return WriteFile(path, []byte(content), perm)
}

// WriteFile writes data to path via a temporary file and rename.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
