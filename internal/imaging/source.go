package imaging

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrImageAccess is returned when an image cannot be read or copied.
var ErrImageAccess = errors.New("image not accessible")

// SourcePath maps a source reference to a local file path without touching
// the file. Plain paths and file:// URIs are accepted; other schemes are not
// reachable from here.
func SourcePath(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("%w: empty source", ErrImageAccess)
	}
	u, err := url.Parse(uri)
	// Single-letter schemes are Windows drive letters.
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return uri, nil
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: unsupported scheme %q in %s", ErrImageAccess, u.Scheme, uri)
	}
	return u.Path, nil
}

// ResolveSource maps a source reference to a local file path and checks
// that the file exists and is non-empty.
func ResolveSource(uri string) (string, error) {
	path, err := SourcePath(uri)
	if err != nil {
		return "", err
	}
	if err := CheckAccess(path); err != nil {
		return "", err
	}
	return path, nil
}

// CheckAccess verifies that path can be opened and holds data.
func CheckAccess(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImageAccess, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImageAccess, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrImageAccess, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrImageAccess, path)
	}
	return nil
}

// FileURI returns a file:// URI for path.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// CopyToCache copies the source into cacheDir as src_<id>.tmp and returns
// the new path. The copy is removed if anything fails part way.
func CopyToCache(uri, cacheDir string) (string, error) {
	srcPath, err := ResolveSource(uri)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return "", fmt.Errorf("%w: failed to create cache directory: %w", ErrImageAccess, err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImageAccess, err)
	}
	defer src.Close()

	dstPath := filepath.Join(cacheDir, "src_"+uuid.NewString()+".tmp")
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create cache file: %w", ErrImageAccess, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("%w: copy failed: %w", ErrImageAccess, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("%w: copy failed: %w", ErrImageAccess, err)
	}

	return dstPath, nil
}
