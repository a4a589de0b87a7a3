package libsocket

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/opencontainers/socketrun/libsocket/endpoint"
	"github.com/opencontainers/socketrun/libsocket/sockopt"
	"github.com/opencontainers/socketrun/libsocket/unixfs"
	"github.com/opencontainers/socketrun/libsocket/user"
)

const (
	// MaxMode is the largest accepted socket or directory mode (rwx for
	// everyone, no special bits).
	MaxMode = 0o777

	DefaultSocketMode    = 0o666
	DefaultDirectoryMode = 0o755
	DefaultBacklog       = 128
)

// ListenerConfig declares one endpoint.
type ListenerConfig struct {
	// Endpoint is the endpoint specification, see package endpoint.
	Endpoint string
	// Type is SOCK_STREAM, SOCK_DGRAM or SOCK_SEQPACKET.
	Type    int
	Options sockopt.Options
}

// Config is everything needed for one launch. It is filled in once and is
// read-only afterwards.
type Config struct {
	// Path is the application to execute.
	Path string
	// Args is the application's argument vector, starting with argv[0].
	Args []string

	// Listeners in declaration order. Listener i is handed over as
	// descriptor 3+i.
	Listeners []ListenerConfig
	// Protocol overrides the transport protocol of internet sockets.
	Protocol endpoint.Protocol
	Backlog  int

	// The following apply to unix sockets bound to a path only.
	SocketMode    uint32
	DirectoryMode uint32
	// SocketUser and SocketGroup own the socket files, by name or numeric
	// id. Empty leaves that side of the ownership alone.
	SocketUser      string
	SocketGroup     string
	LockUnixSockets bool
}

// DefaultConfig returns a Config with the defaults used when nothing else is
// requested.
func DefaultConfig() *Config {
	return &Config{
		Backlog:       DefaultBacklog,
		SocketMode:    DefaultSocketMode,
		DirectoryMode: DefaultDirectoryMode,
	}
}

// ParseMode parses an octal permission mode no larger than MaxMode.
func ParseMode(s string) (uint32, error) {
	m, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("value (%s) not valid mode: %w", s, err)
	}
	if m > MaxMode {
		return 0, fmt.Errorf("value (%s) not valid mode: exceeds %o", s, MaxMode)
	}
	return uint32(m), nil
}

// Validate checks c before any socket is created.
func (c *Config) Validate() error {
	if c.Path == "" {
		return newError(KindInput, "", "config", errors.New("missing application to run"))
	}
	if c.SocketMode > MaxMode {
		return newError(KindInput, "", "config", fmt.Errorf("socket mode %o exceeds %o", c.SocketMode, MaxMode))
	}
	if c.DirectoryMode > MaxMode {
		return newError(KindInput, "", "config", fmt.Errorf("directory mode %o exceeds %o", c.DirectoryMode, MaxMode))
	}
	if c.Backlog < 0 {
		return newError(KindInput, "", "config", fmt.Errorf("invalid backlog %d", c.Backlog))
	}
	return nil
}

// owner resolves the socket file ownership from the passwd and group
// databases.
func (c *Config) owner() (unixfs.Owner, error) {
	o := unixfs.Owner{Mode: c.SocketMode, UID: -1, GID: -1}
	if c.SocketUser != "" {
		uid, err := user.LookupUID(c.SocketUser)
		if err != nil {
			return o, err
		}
		o.UID, o.Chown = uid, true
	}
	if c.SocketGroup != "" {
		gid, err := user.LookupGID(c.SocketGroup)
		if err != nil {
			return o, err
		}
		o.GID, o.Chown = gid, true
	}
	return o, nil
}
