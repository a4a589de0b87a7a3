// Package linux provides thin wrappers around the golang.org/x/sys/unix
// calls used to prepare sockets. All of them retry on EINTR and return
// errors that carry the syscall name.
package linux

import (
	"os"

	"golang.org/x/sys/unix"
)

// Socket wraps [unix.Socket]. The returned descriptor is not close-on-exec.
func Socket(domain, typ, proto int) (int, error) {
	fd, err := retryOnEINTR2(func() (int, error) {
		return unix.Socket(domain, typ, proto)
	})
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}
	return fd, nil
}

// Bind wraps [unix.Bind].
func Bind(fd int, sa unix.Sockaddr) error {
	err := retryOnEINTR(func() error {
		return unix.Bind(fd, sa)
	})
	return os.NewSyscallError("bind", err)
}

// Listen wraps [unix.Listen].
func Listen(fd, backlog int) error {
	err := retryOnEINTR(func() error {
		return unix.Listen(fd, backlog)
	})
	return os.NewSyscallError("listen", err)
}

// SetsockoptInt wraps [unix.SetsockoptInt]. name is used for the error
// message only.
func SetsockoptInt(fd, level, opt, value int, name string) error {
	err := retryOnEINTR(func() error {
		return unix.SetsockoptInt(fd, level, opt, value)
	})
	return os.NewSyscallError("setsockopt "+name, err)
}

// Dup3 wraps [unix.Dup3].
func Dup3(oldfd, newfd, flags int) error {
	err := retryOnEINTR(func() error {
		return unix.Dup3(oldfd, newfd, flags)
	})
	return os.NewSyscallError("dup3", err)
}

// DupAbove duplicates fd onto the lowest free descriptor not lower than
// lowest. The new descriptor is close-on-exec.
func DupAbove(fd, lowest int) (int, error) {
	nfd, err := retryOnEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, lowest)
	})
	if err != nil {
		return -1, os.NewSyscallError("fcntl F_DUPFD_CLOEXEC", err)
	}
	return nfd, nil
}

// SetInheritable clears the close-on-exec flag of fd.
func SetInheritable(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0)
	return os.NewSyscallError("fcntl F_SETFD", err)
}

// Exec wraps [unix.Exec].
func Exec(cmd string, args []string, env []string) error {
	err := retryOnEINTR(func() error {
		return unix.Exec(cmd, args, env)
	})
	if err != nil {
		return &os.PathError{Op: "exec", Path: cmd, Err: err}
	}
	return nil
}

// Access wraps [unix.Access]. Errors are reported as exec failures of path.
func Access(path string, mode uint32) error {
	err := retryOnEINTR(func() error {
		return unix.Access(path, mode)
	})
	if err != nil {
		return &os.PathError{Op: "exec", Path: path, Err: err}
	}
	return nil
}

// Open wraps [unix.Open].
func Open(path string, mode int, perm uint32) (fd int, err error) {
	fd, err = retryOnEINTR2(func() (int, error) {
		return unix.Open(path, mode, perm)
	})
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

// Openat wraps [unix.Openat].
func Openat(dirfd int, path string, mode int, perm uint32) (fd int, err error) {
	fd, err = retryOnEINTR2(func() (int, error) {
		return unix.Openat(dirfd, path, mode, perm)
	})
	if err != nil {
		return -1, &os.PathError{Op: "openat", Path: path, Err: err}
	}
	return fd, nil
}

// Mkdirat wraps [unix.Mkdirat].
func Mkdirat(dirfd int, path string, mode uint32) error {
	err := retryOnEINTR(func() error {
		return unix.Mkdirat(dirfd, path, mode)
	})
	if err != nil {
		return &os.PathError{Op: "mkdirat", Path: path, Err: err}
	}
	return nil
}

// Flock wraps [unix.Flock].
func Flock(fd int, how int) error {
	err := retryOnEINTR(func() error {
		return unix.Flock(fd, how)
	})
	return os.NewSyscallError("flock", err)
}

// Unlink wraps [unix.Unlink].
func Unlink(path string) error {
	err := retryOnEINTR(func() error {
		return unix.Unlink(path)
	})
	if err != nil {
		return &os.PathError{Op: "unlink", Path: path, Err: err}
	}
	return nil
}

// Chmod wraps [unix.Fchmodat] relative to the current directory.
func Chmod(path string, mode uint32) error {
	err := retryOnEINTR(func() error {
		return unix.Fchmodat(unix.AT_FDCWD, path, mode, 0)
	})
	if err != nil {
		return &os.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

// Lchown wraps [unix.Fchownat] with AT_SYMLINK_NOFOLLOW.
func Lchown(path string, uid, gid int) error {
	err := retryOnEINTR(func() error {
		return unix.Fchownat(unix.AT_FDCWD, path, uid, gid, unix.AT_SYMLINK_NOFOLLOW)
	})
	if err != nil {
		return &os.PathError{Op: "lchown", Path: path, Err: err}
	}
	return nil
}
