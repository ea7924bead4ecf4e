package storage

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempMarker = ".tmp."

// TempPrefix is the name prefix shared by every temp file written for path.
func TempPrefix(path string) string {
	return filepath.Base(path) + tempMarker
}

// WriteAtomic writes data to a uniquely named temp file next to path and
// renames it over path. The temp file never outlives a failed call.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, f, err := createTemp(path, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temp file %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temp file %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp file %s to %s: %w", tmp, path, err)
	}
	return nil
}

func createTemp(path string, perm os.FileMode) (string, *os.File, error) {
	prefix := filepath.Join(filepath.Dir(path), TempPrefix(path))

	var lastErr error
	for range 10 {
		tmp := fmt.Sprintf("%s%d", prefix, rand.Uint64())
		f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err == nil {
			return tmp, f, nil
		}
		lastErr = err
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	return "", nil, fmt.Errorf("creating temp file for %s: %w", path, lastErr)
}

// SweepTemps removes leftover temp files for path whose modification time is
// at least olderThan before now. Zero olderThan removes all of them. Removal
// errors are skipped; only an unreadable directory is reported.
func SweepTemps(path string, olderThan time.Duration, now time.Time) (int, error) {
	dir := filepath.Dir(path)
	prefix := TempPrefix(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if olderThan > 0 {
			info, err := entry.Info()
			if err != nil || now.Sub(info.ModTime()) < olderThan {
				continue
			}
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
