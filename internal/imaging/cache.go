package imaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanCache removes crops and copied sources in dir whose modification
// time is older than maxAge relative to now. A missing dir is not an error.
// It returns the number of files removed; individual removal failures are
// joined into the returned error and do not stop the sweep.
func CleanCache(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !isCacheFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isCacheFile(name string) bool {
	return (strings.HasPrefix(name, "cropped_") && strings.HasSuffix(name, ".jpg")) ||
		(strings.HasPrefix(name, "src_") && strings.HasSuffix(name, ".tmp"))
}
