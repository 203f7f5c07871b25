package fuzzy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FieldLock provides cross-process advisory locking for one indexed field.
// Rebuild and append of the same field's corpus must not overlap across
// processes; readers never take the lock. Works on all platforms
// (Unix, Linux, macOS, Windows).
type FieldLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFieldLock creates a lock scoped to one field's corpus blob.
// The lock file lives next to the blob as <blob>.lock.
func NewFieldLock(blobPath string) *FieldLock {
	lockPath := blobPath + ".lock"
	return &FieldLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the exclusive lock without blocking.
// Returns true if the lock was acquired, false if it's held elsewhere.
// Callers treat a held lock as fail-fast, not retryable.
func (l *FieldLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock.
// It's safe to call Unlock multiple times or on an unlocked FieldLock.
func (l *FieldLock) Unlock() error {
	if !l.locked {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.locked = false
	return nil
}

// Path returns the path to the lock file.
func (l *FieldLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *FieldLock) IsLocked() bool {
	return l.locked
}
