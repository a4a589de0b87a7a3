package libsocket

import (
	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/libsocket/endpoint"
	"github.com/opencontainers/socketrun/libsocket/sockopt"
)

// Listener is one endpoint together with its socket. The socket is owned by
// the Listener until the launcher execs the application.
type Listener struct {
	*endpoint.Endpoint
	Options sockopt.Options

	fd int
	// lockFd holds the advisory lock for path sockets, or is -1.
	lockFd int
}

func newListener(ep *endpoint.Endpoint, opts sockopt.Options, fd int) *Listener {
	return &Listener{Endpoint: ep, Options: opts, fd: fd, lockFd: -1}
}

// Fd returns the listener's socket descriptor.
func (l *Listener) Fd() int {
	return l.fd
}

// Path returns the filesystem path for unix sockets bound to a path, and ""
// otherwise.
func (l *Listener) Path() string {
	if a, ok := l.Addr.(*endpoint.PathAddr); ok {
		return a.Path
	}
	return ""
}

func (l *Listener) close() {
	if l.fd >= 0 {
		unix.Close(l.fd)
		l.fd = -1
	}
	if l.lockFd >= 0 {
		unix.Close(l.lockFd)
		l.lockFd = -1
	}
}

// Registry is the ordered set of listeners of one launch. Entries are only
// ever appended; their order is the order of the handed over descriptors.
type Registry struct {
	listeners []*Listener
}

// Add appends l.
func (r *Registry) Add(l *Listener) {
	r.listeners = append(r.listeners, l)
}

// Len returns the number of listeners, which becomes LISTEN_FDS.
func (r *Registry) Len() int {
	return len(r.listeners)
}

// Listeners returns the listeners in declaration order. The slice must not
// be modified.
func (r *Registry) Listeners() []*Listener {
	return r.listeners
}

// Fds returns the socket descriptors in declaration order.
func (r *Registry) Fds() []int {
	fds := make([]int, len(r.listeners))
	for i, l := range r.listeners {
		fds[i] = l.fd
	}
	return fds
}

// LockFds returns the descriptors of the lock files held for the listeners,
// in declaration order.
func (r *Registry) LockFds() []int {
	var fds []int
	for _, l := range r.listeners {
		if l.lockFd >= 0 {
			fds = append(fds, l.lockFd)
		}
	}
	return fds
}

// setFds records new descriptor numbers, as returned by Fds and LockFds
// after the descriptors were moved.
func (r *Registry) setFds(fds, lockFds []int) {
	for i, l := range r.listeners {
		l.fd = fds[i]
		if l.lockFd >= 0 {
			l.lockFd, lockFds = lockFds[0], lockFds[1:]
		}
	}
}

// Close closes every socket and lock file. It is used when a launch is
// aborted.
func (r *Registry) Close() {
	for _, l := range r.listeners {
		l.close()
	}
}
