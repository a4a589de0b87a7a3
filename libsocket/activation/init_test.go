package activation

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/libsocket/utils"
)

// The test binary runs Renumber in a fresh copy of itself, where the
// descriptor layout is under the test's control, selected by os.Args[1]:
//
//	renumber            listeners spread out, a lock inside the target
//	                    range and an unrelated close-on-exec descriptor
//	renumber-inherited  an inheritable descriptor in the target range
func init() {
	if len(os.Args) < 2 {
		return
	}
	var err error
	switch os.Args[1] {
	case "renumber":
		err = testRenumber()
	case "renumber-inherited":
		err = testRenumberInherited()
	default:
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// layoutMax is the highest descriptor the layouts below use.
const layoutMax = 24

type renumberReport struct {
	// Inodes identifies the objects handed to Renumber, in order.
	Inodes []uint64
	Fds    []int
	// Placed holds the inodes found at Fds after Renumber.
	Placed []uint64
	// StillOpen lists descriptors above the target range left open.
	StillOpen []int
	Err       string
}

func inode(fd int) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, fmt.Errorf("fstat %d: %w", fd, err)
	}
	return st.Ino, nil
}

// checkFree makes sure nothing, including the Go runtime, uses the
// descriptors the layout is built from.
func checkFree() error {
	for fd := ListenFdsStart; fd <= layoutMax; fd++ {
		if utils.IsOpen(fd) {
			return fmt.Errorf("descriptor %d is already open, unable to build the layout", fd)
		}
	}
	return nil
}

// arrange moves the descriptors in fds to the slots in at, going through
// staging slots so that no move lands on a descriptor still to be moved.
func arrange(fds, at []int, flags int) error {
	const staging = 20
	for i, fd := range fds {
		if err := unix.Dup3(fd, staging+i, flags); err != nil {
			return err
		}
		unix.Close(fd)
		fds[i] = staging + i
	}
	for i, fd := range fds {
		if err := unix.Dup3(fd, at[i], flags); err != nil {
			return err
		}
		unix.Close(fd)
		fds[i] = at[i]
	}
	return nil
}

func newSocket() (int, error) {
	return unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
}

func testRenumber() error {
	if err := checkFree(); err != nil {
		return err
	}
	var objs []int
	for range 3 {
		fd, err := newSocket()
		if err != nil {
			return err
		}
		objs = append(objs, fd)
	}
	lock, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	objs = append(objs, lock)
	other, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return err
	}
	objs = append(objs, other)

	// Three listeners at 12, 4 and 10, the lock at 3 and the unrelated
	// descriptor at 5, all inside the target range 3..6 or above it.
	if err := arrange(objs, []int{12, 4, 10, 3, 5}, unix.O_CLOEXEC); err != nil {
		return err
	}

	var r renumberReport
	r.Fds = objs[:4]
	for _, fd := range r.Fds {
		ino, err := inode(fd)
		if err != nil {
			return err
		}
		r.Inodes = append(r.Inodes, ino)
	}

	if err := Renumber(r.Fds); err != nil {
		r.Err = err.Error()
	}
	for _, fd := range r.Fds {
		ino, err := inode(fd)
		if err != nil {
			return err
		}
		r.Placed = append(r.Placed, ino)
	}
	for fd := ListenFdsStart + len(r.Fds); fd <= layoutMax; fd++ {
		if utils.IsOpen(fd) {
			r.StillOpen = append(r.StillOpen, fd)
		}
	}
	return json.NewEncoder(os.Stdout).Encode(r)
}

func testRenumberInherited() error {
	if err := checkFree(); err != nil {
		return err
	}
	var p [2]int
	if err := unix.Pipe2(p[:], 0); err != nil {
		return err
	}
	unix.Close(p[1])
	sock, err := newSocket()
	if err != nil {
		return err
	}
	objs := []int{p[0], sock}
	// The pipe is inheritable, and sits where the socket has to go.
	if err := arrange(objs, []int{3, 10}, 0); err != nil {
		return err
	}

	var r renumberReport
	before, err := inode(3)
	if err != nil {
		return err
	}
	r.Inodes = []uint64{before}
	r.Fds = []int{objs[1]}
	if err := Renumber(r.Fds); err != nil {
		r.Err = err.Error()
	}
	after, err := inode(3)
	if err != nil {
		return err
	}
	r.Placed = []uint64{after}
	return json.NewEncoder(os.Stdout).Encode(r)
}
