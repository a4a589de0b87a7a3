package endpoint

import (
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxPathLen is the size of sun_path in struct sockaddr_un.
const maxPathLen = len(unix.RawSockaddrUnix{}.Path)

// Address is a resolved listening address. It is implemented by
// [*InetAddr], [*PathAddr] and [*AbstractAddr] only.
type Address interface {
	// Family returns the address family (AF_INET, AF_INET6 or AF_UNIX).
	Family() int
	// Sockaddr returns the address in the form accepted by bind(2).
	Sockaddr() unix.Sockaddr
	String() string

	address()
}

// InetAddr is a numeric IPv4 or IPv6 socket address.
type InetAddr struct {
	AddrPort netip.AddrPort
	// ZoneID is the interface index for scoped IPv6 addresses.
	ZoneID uint32
}

func (a *InetAddr) Family() int {
	if a.AddrPort.Addr().Is4() {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func (a *InetAddr) Sockaddr() unix.Sockaddr {
	port := int(a.AddrPort.Port())
	if a.AddrPort.Addr().Is4() {
		return &unix.SockaddrInet4{Port: port, Addr: a.AddrPort.Addr().As4()}
	}
	return &unix.SockaddrInet6{Port: port, ZoneId: a.ZoneID, Addr: a.AddrPort.Addr().As16()}
}

func (a *InetAddr) String() string {
	return a.AddrPort.String()
}

func (*InetAddr) address() {}

// PathAddr is a unix domain socket bound to a filesystem path.
type PathAddr struct {
	Path string
}

func (*PathAddr) Family() int { return unix.AF_UNIX }

func (a *PathAddr) Sockaddr() unix.Sockaddr {
	return &unix.SockaddrUnix{Name: a.Path}
}

func (a *PathAddr) String() string { return a.Path }

func (*PathAddr) address() {}

// AbstractAddr is a unix domain socket in the abstract namespace. Name does
// not include the leading NUL byte which the kernel uses to tell abstract
// addresses apart from paths.
type AbstractAddr struct {
	Name string
}

func (*AbstractAddr) Family() int { return unix.AF_UNIX }

func (a *AbstractAddr) Sockaddr() unix.Sockaddr {
	// x/sys/unix replaces a leading '@' with NUL and leaves out the
	// trailing NUL from the address length.
	return &unix.SockaddrUnix{Name: "@" + a.Name}
}

func (a *AbstractAddr) String() string {
	return strconv.Quote("\x00" + a.Name)
}

func (*AbstractAddr) address() {}
