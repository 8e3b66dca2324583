package shared

import (
	"fmt"

	"github.com/gofrs/flock"
)

// RunLock is an advisory file lock that keeps two refresh runs from overlapping.
type RunLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file used for the database at dbPath.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireRunLock takes the lock at path without blocking. It fails with [ErrRunInProgress] when another process
// holds it.
func AcquireRunLock(path string) (*RunLock, error) {
	l := flock.New(path)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: lock held at %s", ErrRunInProgress, path)
	}
	return &RunLock{lock: l}, nil
}

// Release unlocks the run lock. Safe to call on a nil lock.
func (r *RunLock) Release() error {
	if r == nil || r.lock == nil {
		return nil
	}
	return r.lock.Unlock()
}
