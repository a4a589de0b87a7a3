// Package endpoint turns textual endpoint specifications into socket
// addresses and unbound sockets.
//
// The accepted forms, tried in this order, are:
//
//	8080          a bare port, bound to 0.0.0.0
//	/run/app.sock a unix socket on the filesystem
//	x@name        a unix socket in the abstract namespace (the second
//	              character is '@'; the name starts at that character)
//	1.2.3.4:80    a numeric host and port, split at the last ':'
//
// Host names and service names are never looked up. Bracketed IPv6 literals
// such as "[::1]:80" are not supported.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
)

var (
	ErrMissingPort      = errors.New("missing port in endpoint")
	ErrTooShort         = errors.New("endpoint too short")
	ErrSockTypeMismatch = errors.New("socket type mismatch")
)

// Endpoint is a resolved endpoint specification.
type Endpoint struct {
	// Label is the specification the endpoint was resolved from.
	Label    string
	Addr     Address
	Family   int
	Type     int
	Protocol int
}

// Resolve parses spec for a socket of type typ (SOCK_STREAM, SOCK_DGRAM or
// SOCK_SEQPACKET). proto overrides the default protocol of internet
// sockets.
func Resolve(spec string, typ int, proto Protocol) (*Endpoint, error) {
	if err := checkSockType(typ); err != nil {
		return nil, err
	}
	addr, err := parseAddr(spec)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve address %q: %w", spec, err)
	}
	ep := &Endpoint{
		Label:  spec,
		Addr:   addr,
		Family: addr.Family(),
		Type:   typ,
	}
	if _, ok := addr.(*InetAddr); ok {
		ep.Protocol, err = proto.number(typ)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve address %q: %w", spec, err)
		}
	}
	return ep, nil
}

// Socket creates an unbound socket for the endpoint. The descriptor is not
// close-on-exec.
func (e *Endpoint) Socket() (int, error) {
	return linux.Socket(e.Family, e.Type, e.Protocol)
}

func parseAddr(spec string) (Address, error) {
	if port, err := parsePort(spec); err == nil {
		return &InetAddr{AddrPort: netip.AddrPortFrom(netip.IPv4Unspecified(), port)}, nil
	}

	if len(spec) < 2 {
		return nil, ErrTooShort
	}
	if spec[0] == '/' {
		path := spec
		if len(path) > maxPathLen-1 {
			path = path[:maxPathLen-1]
		}
		return &PathAddr{Path: path}, nil
	}
	if spec[1] == '@' {
		name := spec[1:]
		if len(name) > maxPathLen-1 {
			name = name[:maxPathLen-1]
		}
		return &AbstractAddr{Name: name}, nil
	}

	i := strings.LastIndexByte(spec, ':')
	if i < 0 {
		return nil, ErrMissingPort
	}
	host, service := spec[:i], spec[i+1:]
	port, err := parsePort(service)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", service, err)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric host %q: %w", host, err)
	}
	addr := &InetAddr{AddrPort: netip.AddrPortFrom(ip, port)}
	if zone := ip.Zone(); zone != "" {
		if addr.ZoneID, err = zoneIndex(zone); err != nil {
			return nil, err
		}
	}
	return addr, nil
}

func parsePort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}

// zoneIndex maps an IPv6 zone to an interface index. Numeric zones are
// taken as is.
func zoneIndex(zone string) (uint32, error) {
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n), nil
	}
	ifi, err := net.InterfaceByName(zone)
	if err != nil {
		return 0, fmt.Errorf("invalid zone %q: %w", zone, err)
	}
	return uint32(ifi.Index), nil
}

func checkSockType(typ int) error {
	switch typ {
	case unix.SOCK_STREAM, unix.SOCK_DGRAM, unix.SOCK_SEQPACKET:
		return nil
	}
	return fmt.Errorf("%w: unsupported socket type %d", ErrSockTypeMismatch, typ)
}

// TypeName returns the systemd-style name of a socket type.
func TypeName(typ int) string {
	switch typ {
	case unix.SOCK_STREAM:
		return "stream"
	case unix.SOCK_DGRAM:
		return "datagram"
	case unix.SOCK_SEQPACKET:
		return "seqpacket"
	}
	return "type(" + strconv.Itoa(typ) + ")"
}
