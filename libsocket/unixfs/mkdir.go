// Package unixfs handles the filesystem side of unix domain sockets bound to
// a path: creating parent directories, single instance locking and the
// removal of sockets left behind by an earlier run.
package unixfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
)

// MkdirAll creates every missing parent directory of the socket at path
// with the given mode. The walk starts at the filesystem root and descends
// one component at a time, each step relative to a handle on the previous
// directory, so the path is never resolved again from the top.
func MkdirAll(path string, mode uint32) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("socket path %q is not absolute", path)
	}
	// The root directory is expected to exist.
	dirfd, err := linux.Open("/", unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer func() { unix.Close(dirfd) }()

	for _, name := range strings.Split(filepath.Dir(path), "/") {
		if name == "" {
			continue
		}
		next, err := openOrMkdir(dirfd, name, mode)
		if err != nil {
			return fmt.Errorf("unable to create parent directories of %s: %w", path, err)
		}
		unix.Close(dirfd)
		dirfd = next
	}
	return nil
}

func openOrMkdir(dirfd int, name string, mode uint32) (int, error) {
	if err := linux.Mkdirat(dirfd, name, mode); err != nil && !errors.Is(err, unix.EEXIST) {
		return -1, err
	}
	return linux.Openat(dirfd, name, unix.O_PATH|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
}
