// Package activation implements the sending side of the systemd socket
// activation protocol: descriptors numbered from 3 in declaration order,
// announced through LISTEN_PID, LISTEN_FDS and LISTEN_FDNAMES.
package activation

import (
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
	"github.com/opencontainers/socketrun/libsocket/utils"
)

const (
	// ListenFdsStart corresponds to `SD_LISTEN_FDS_START`.
	ListenFdsStart = 3

	EnvListenPid     = "LISTEN_PID"
	EnvListenFds     = "LISTEN_FDS"
	EnvListenFdNames = "LISTEN_FDNAMES"
)

// Environ returns base with any previous activation variables replaced by
// the ones announcing n descriptors to process pid. Descriptor names are
// not implemented, so LISTEN_FDNAMES is always empty.
func Environ(base []string, pid, n int) []string {
	env := utils.WithoutEnv(base, EnvListenPid, EnvListenFds, EnvListenFdNames)
	return append(env,
		EnvListenPid+"="+strconv.Itoa(pid),
		EnvListenFds+"="+strconv.Itoa(n),
		EnvListenFdNames+"=",
	)
}

// Renumber moves fds[i] onto ListenFdsStart+i, updating fds in place as it
// goes. A target slot held by a later entry of fds is freed by moving that
// entry above the range first. Any other occupant is overwritten if it is
// close-on-exec, since it would not survive the exec anyway; an occupant
// that would be inherited is an error.
func Renumber(fds []int) error {
	top := ListenFdsStart + len(fds)
	for i := range fds {
		want := ListenFdsStart + i
		if fds[i] == want {
			continue
		}
		if j := slices.Index(fds[i+1:], want); j >= 0 {
			moved, err := linux.DupAbove(want, top)
			if err != nil {
				return err
			}
			fds[i+1+j] = moved
		} else if flags, err := unix.FcntlInt(uintptr(want), unix.F_GETFD, 0); err == nil && flags&unix.FD_CLOEXEC == 0 {
			return fmt.Errorf("descriptor %d would be inherited, unable to place descriptor %d there", want, fds[i])
		}
		// dup3 closes whatever was left at want.
		if err := linux.Dup3(fds[i], want, 0); err != nil {
			return err
		}
		unix.Close(fds[i])
		fds[i] = want
	}
	return nil
}

// Exec replaces the current process with path, handing over fds as
// descriptors ListenFdsStart and up, in order. fds is renumbered in place.
// Every other descriptor from ListenFdsStart up is closed on exec. Exec only
// returns on failure.
//
// Renumbering may overwrite descriptors of the Go runtime's network poller,
// which is only safe because execve follows right away. Failures that can be
// detected beforehand are therefore checked first, and the caller should exit
// promptly if Exec returns.
func Exec(path string, args, env []string, fds []int) error {
	if err := linux.Access(path, unix.X_OK); err != nil {
		return err
	}
	if err := utils.CloseExecFrom(ListenFdsStart); err != nil {
		return fmt.Errorf("unable to set close-on-exec: %w", err)
	}
	if err := Renumber(fds); err != nil {
		return fmt.Errorf("unable to renumber descriptors: %w", err)
	}
	for _, fd := range fds {
		if err := linux.SetInheritable(fd); err != nil {
			return fmt.Errorf("descriptor %d: %w", fd, err)
		}
	}
	return linux.Exec(path, args, env)
}
