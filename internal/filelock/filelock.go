// Package filelock guards a working directory against concurrent foreman
// runs and provides atomic report writes.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName is the per-workspace lock file, kept under .foreman so it
// lives next to the rest of foreman's state.
const lockFileName = "run.lock"

// WorkspaceLock serializes foreman runs over one working directory. Two
// concurrent runs mutating the same workspace would interleave engine edits,
// so the second run must fail fast instead of queueing.
type WorkspaceLock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes the workspace lock for dir without blocking. Returns an
// error if another run already holds it or if the lock file cannot be
// created.
func Acquire(dir string) (*WorkspaceLock, error) {
	stateDir := filepath.Join(dir, ".foreman")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	path := filepath.Join(stateDir, lockFileName)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock workspace %s: %w", dir, err)
	}
	if !acquired {
		return nil, fmt.Errorf("workspace %s is locked by another foreman run", dir)
	}

	return &WorkspaceLock{flock: fl, path: path}, nil
}

// Release releases the workspace lock.
func (wl *WorkspaceLock) Release() error {
	if err := wl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", wl.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (wl *WorkspaceLock) Path() string {
	return wl.path
}

// AtomicWrite writes data to a file via a temp file in the same directory
// followed by a rename, so readers never observe a partial report. The
// original file is untouched if any intermediate step fails.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Same directory keeps the rename on one filesystem, which is what
	// makes it atomic.
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}
