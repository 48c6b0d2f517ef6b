package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process already watches the job.
var ErrLocked = errors.New("job is already being watched by another process")

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// JobLock guarantees a single watcher per job across processes.
type JobLock struct {
	path string
	lock *flock.Flock
}

// LockJob takes the watch lock of jobID under stateDir without blocking.
func LockJob(stateDir, jobID string) (*JobLock, error) {
	dir := filepath.Join(stateDir, "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, unsafeLockChars.ReplaceAllString(jobID, "_")+".lock")
	l := flock.New(path)

	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", jobID, ErrLocked)
	}

	return &JobLock{path: path, lock: l}, nil
}

func (l *JobLock) Path() string {
	return l.path
}

// Unlock releases the lock. It is safe to call more than once.
func (l *JobLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
