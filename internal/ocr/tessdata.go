package ocr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// systemTessdataDirs lists common install locations checked after the
// configured directory.
var systemTessdataDirs = []string{
	"/usr/share/tesseract-ocr/5/tessdata",
	"/usr/share/tesseract-ocr/4.00/tessdata",
	"/usr/share/tessdata",
	"/usr/local/share/tessdata",
	"/opt/homebrew/share/tessdata",
}

// ModelPath returns the path of the trained model for language in dir.
func ModelPath(dir, language string) string {
	return filepath.Join(dir, language+".traineddata")
}

// ResolveTessdataDir finds a directory containing the model for language.
//
// Candidates are tried in order:
//  1. configured, when non-empty
//  2. a "tessdata" directory next to the executable
//  3. $TESSDATA_PREFIX and $TESSDATA_PREFIX/tessdata
//  4. common system install locations
//
// An explicitly configured directory that lacks the model is an error; the
// other candidates are only searched when configured is empty.
func ResolveTessdataDir(configured, language string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(ModelPath(configured, language)); err != nil {
			return "", fmt.Errorf("model %s.traineddata not found in %s: %w", language, configured, err)
		}
		return configured, nil
	}

	for _, dir := range tessdataCandidates() {
		if _, err := os.Stat(ModelPath(dir, language)); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("model %s.traineddata not found in any tessdata directory", language)
}

func tessdataCandidates() []string {
	var dirs []string

	if exePath, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exePath); err == nil {
			exePath = real
		}
		dirs = append(dirs, filepath.Join(filepath.Dir(exePath), "tessdata"))
	}

	if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
		dirs = append(dirs, prefix, filepath.Join(prefix, "tessdata"))
	}

	return append(dirs, systemTessdataDirs...)
}

// InstallModel copies a trained model file into tessdataDir, creating the
// directory if needed. An existing file of the same size is left alone.
func InstallModel(srcPath, tessdataDir string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open model: %w", err)
	}
	defer src.Close()

	srcInfo, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat model: %w", err)
	}

	if err := os.MkdirAll(tessdataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tessdata directory: %w", err)
	}

	dstPath := filepath.Join(tessdataDir, filepath.Base(srcPath))
	if info, err := os.Stat(dstPath); err == nil && info.Size() == srcInfo.Size() {
		return dstPath, nil
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to copy model: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to write model: %w", err)
	}

	return dstPath, nil
}
