// Package store centralizes low-level filesystem writes under the roombot home.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

// WriteFile atomically replaces a file's contents, creating parent
// directories as needed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	cleanPath, err := cleanPath(path)
	if err != nil {
		return err
	}

	lock := lockForPath(cleanPath)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(cleanPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", cleanPath, err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file for %q: %w", cleanPath, err)
	}
	if err := tempFile.Chmod(perm); err != nil {
		tempFile.Close()
		return fmt.Errorf("chmod temp file for %q: %w", cleanPath, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file for %q: %w", cleanPath, err)
	}
	if err := os.Rename(tempPath, cleanPath); err != nil {
		return fmt.Errorf("replace file %q: %w", cleanPath, err)
	}
	return nil
}

// CreateFile writes data to path only if path does not exist yet. created
// reports whether this call wrote the file.
func CreateFile(path string, data []byte, perm os.FileMode) (created bool, err error) {
	cleanPath, err := cleanPath(path)
	if err != nil {
		return false, err
	}

	lock := lockForPath(cleanPath)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create file %q: %w", cleanPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return false, fmt.Errorf("write file %q: %w", cleanPath, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close file %q: %w", cleanPath, err)
	}
	return true, nil
}

func lockForPath(path string) *sync.Mutex {
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()

	lock, ok := pathLocks[path]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	pathLocks[path] = lock
	return lock
}

func cleanPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is required")
	}
	return filepath.Clean(trimmed), nil
}
