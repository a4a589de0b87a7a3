// Package libsocket prepares listening sockets and hands them to an
// application using the systemd socket activation protocol.
//
// A launch runs in three phases. New resolves every endpoint and creates its
// socket in declaration order. Prepare creates parent directories and locks
// for unix sockets, applies socket options, binds and listens. Exec moves
// the sockets onto descriptors 3 and up, followed by the lock files, and
// replaces the current process with the application. Only Exec is
// irreversible; an error from any earlier phase leaves nothing behind for a
// child to inherit.
package libsocket

import (
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
	"github.com/opencontainers/socketrun/libsocket/activation"
	"github.com/opencontainers/socketrun/libsocket/endpoint"
	"github.com/opencontainers/socketrun/libsocket/sockopt"
	"github.com/opencontainers/socketrun/libsocket/unixfs"
)

var (
	ErrNotPrepared = errors.New("listeners have not been prepared")
	ErrClosed      = errors.New("launcher is closed")
)

// Launcher drives a single launch.
type Launcher struct {
	config   *Config
	owner    unixfs.Owner
	registry Registry
	prepared bool
	closed   bool
}

// New validates config, resolves every declared endpoint and creates the
// sockets. The descriptors they get are arbitrary; Exec renumbers them.
func New(config *Config) (_ *Launcher, Err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &Launcher{config: config}
	defer func() {
		if Err != nil {
			l.registry.Close()
		}
	}()

	for _, lc := range config.Listeners {
		ep, err := endpoint.Resolve(lc.Endpoint, lc.Type, config.Protocol)
		if err != nil {
			return nil, newError(KindResolve, lc.Endpoint, "resolve", err)
		}
		fd, err := ep.Socket()
		if err != nil {
			return nil, newError(KindResource, lc.Endpoint, "create socket", err)
		}
		l.registry.Add(newListener(ep, lc.Options, fd))
	}

	owner, err := config.owner()
	if err != nil {
		return nil, newError(KindInput, "", "socket owner", err)
	}
	l.owner = owner

	preflight(config, l.registry.Listeners())
	return l, nil
}

// Listeners returns the listeners in declaration order.
func (l *Launcher) Listeners() []*Listener {
	return l.registry.Listeners()
}

// Prepare readies every listener for handover. It stops at the first
// failure.
func (l *Launcher) Prepare() (Err error) {
	if l.closed {
		return ErrClosed
	}
	defer func() {
		if Err != nil {
			l.Close()
		}
	}()
	for _, lis := range l.registry.Listeners() {
		if err := l.prepare(lis); err != nil {
			return err
		}
	}
	l.prepared = true
	return nil
}

func (l *Launcher) prepare(lis *Listener) error {
	logrus.Infof("Listening: %s", lis.Label)
	path := lis.Path()
	if path != "" {
		if err := unixfs.MkdirAll(path, l.config.DirectoryMode); err != nil {
			return newError(KindFilesystem, lis.Label, "create directories", err)
		}
		if l.config.LockUnixSockets {
			fd, err := unixfs.Lock(path)
			if err != nil {
				if errors.Is(err, unixfs.ErrLocked) {
					return newError(KindContention, lis.Label, "lock", err)
				}
				return newError(KindFilesystem, lis.Label, "lock", err)
			}
			lis.lockFd = fd
		}
	}

	if err := sockopt.Apply(lis.fd, &lis.Options); err != nil {
		return newError(KindResource, lis.Label, "set options", err)
	}

	if err := linux.Bind(lis.fd, lis.Addr.Sockaddr()); err != nil {
		return newError(KindResource, lis.Label, "bind", err)
	}

	if path != "" {
		if err := unixfs.SetOwner(path, l.owner); err != nil {
			return newError(KindFilesystem, lis.Label, "set owner", err)
		}
	}

	// Datagram sockets cannot listen.
	if lis.Type != unix.SOCK_DGRAM {
		if err := linux.Listen(lis.fd, l.config.Backlog); err != nil {
			return newError(KindResource, lis.Label, "listen", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"listener": lis.Label,
		"type":     endpoint.TypeName(lis.Type),
		"fd":       lis.fd,
	}).Info("ACTIVE")
	return nil
}

// Environ returns the environment the application is started with.
func (l *Launcher) Environ() []string {
	return activation.Environ(os.Environ(), os.Getpid(), l.registry.Len())
}

// Exec replaces the current process with the configured application,
// handing over every prepared listener. It only returns on failure, in which
// case all listeners are closed.
func (l *Launcher) Exec() error {
	if l.closed {
		return ErrClosed
	}
	if !l.prepared {
		return ErrNotPrepared
	}
	args := l.config.Args
	if len(args) == 0 {
		args = []string{l.config.Path}
	}
	logrus.Infof("App to run: %s", l.config.Path)
	logrus.Infof("Arguments: %s", strings.Join(args, " "))

	// Lock files follow the listeners, so the application inherits them
	// right after the last listener.
	n := l.registry.Len()
	fds := append(l.registry.Fds(), l.registry.LockFds()...)
	err := activation.Exec(l.config.Path, args, l.Environ(), fds)
	// Exec renumbers fds in place before it can fail.
	l.registry.setFds(fds[:n], fds[n:])
	l.Close()
	return newError(KindResource, "", "exec", err)
}

// Close releases every socket and lock file. It is a no-op after the first
// call.
func (l *Launcher) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.registry.Close()
}
