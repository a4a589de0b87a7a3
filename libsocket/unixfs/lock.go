package unixfs

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
)

// ErrLocked is returned by Lock when another process holds the lock for the
// same socket path.
var ErrLocked = errors.New("socket is in use by another instance")

// LockPath returns the lock file used for the socket at path: the socket's
// file name prefixed with '~', in the same directory.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "~"+filepath.Base(path))
}

// Lock takes an exclusive advisory lock guarding the socket at path and
// then removes any socket file left behind at path. The returned descriptor
// holds the lock for as long as it (or any duplicate of it, including one
// inherited across exec) stays open. It is close-on-exec.
//
// If the lock is held elsewhere, the returned error wraps ErrLocked and path
// is left untouched.
func Lock(path string) (int, error) {
	lockPath := LockPath(path)
	fd, err := linux.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return -1, fmt.Errorf("unable to create lock file: %w", err)
	}

	if err := linux.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return -1, fmt.Errorf("%w: %s (lock %s)", ErrLocked, path, lockPath)
		}
		return -1, fmt.Errorf("unable to lock %s: %w", lockPath, err)
	}

	if err := RemoveStale(path); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// RemoveStale removes the socket file at path. A missing file is not an
// error.
func RemoveStale(path string) error {
	if err := linux.Unlink(path); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("unable to unlink socket file: %w", err)
	}
	return nil
}
