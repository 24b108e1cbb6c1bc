package config

import (
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
)

// Locker is the part of a file lock SaveToFile needs
type Locker interface {
	Lock() error
	Unlock() error
}

// FileLock is an advisory exclusive lock on a sidecar file, so two sfxmix
// processes never interleave writes to the same config.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock creates a lock on path. The file is created on first Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the lock is held
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		slog.Error("failed to acquire file lock", "file_path", fl.path, "error", err)
		return fmt.Errorf("lock %s: %w", fl.path, err)
	}
	slog.Debug("file lock acquired", "file_path", fl.path)
	return nil
}

// TryLock acquires the lock without blocking. It returns false when
// another holder has it.
func (fl *FileLock) TryLock() (bool, error) {
	ok, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try-lock %s: %w", fl.path, err)
	}
	return ok, nil
}

// Unlock releases the lock
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		slog.Error("failed to release file lock", "file_path", fl.path, "error", err)
		return fmt.Errorf("unlock %s: %w", fl.path, err)
	}
	return nil
}

// withLock runs fn while holding l
func withLock(l Locker, fn func() error) error {
	if err := l.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := l.Unlock(); err != nil {
			slog.Warn("unlock failed", "error", err)
		}
	}()
	return fn()
}
