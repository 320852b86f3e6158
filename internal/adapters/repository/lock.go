package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "teamform.lock"

// lockDir creates dir if needed and takes an exclusive lock on it so that
// two processes never open the same data files.
func lockDir(dir string) (*flock.Flock, error) {
	if dir == "" {
		return nil, ErrNoDataDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	l := flock.New(filepath.Join(dir, lockFileName))
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot acquire data lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return l, nil
}

func unlockDir(l *flock.Flock) error {
	if l == nil {
		return nil
	}
	return l.Unlock()
}
