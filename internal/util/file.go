package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// EnsureParentDir creates the directory holding the file at path.
func EnsureParentDir(path string) error {
	return EnsureDir(filepath.Dir(path))
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// SafeName lowercases s and strips everything but ASCII letters and digits.
// An empty result becomes fallback.
func SafeName(s, fallback string) string {
	out := unsafeChars.ReplaceAllString(strings.ToLower(s), "")
	if out == "" {
		return fallback
	}
	return out
}

// WriteFileAtomic writes data through a temp file in the target directory
// and renames it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	done := false
	defer func() {
		if !done {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	done = true
	return nil
}
