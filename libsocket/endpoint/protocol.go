package endpoint

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Protocol selects the transport protocol of internet sockets. The zero
// value picks the usual protocol for the socket type.
type Protocol int

const (
	ProtocolDefault Protocol = iota
	ProtocolUDPLite
	ProtocolSCTP
)

// ParseProtocol parses the values accepted by systemd's SocketProtocol=.
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "":
		return ProtocolDefault, nil
	case "udplite":
		return ProtocolUDPLite, nil
	case "sctp":
		return ProtocolSCTP, nil
	}
	return ProtocolDefault, fmt.Errorf("unknown socket protocol %q (expected udplite or sctp)", s)
}

func (p Protocol) String() string {
	switch p {
	case ProtocolUDPLite:
		return "udplite"
	case ProtocolSCTP:
		return "sctp"
	}
	return ""
}

// number returns the IPPROTO_* value for a socket of type typ.
func (p Protocol) number(typ int) (int, error) {
	switch p {
	case ProtocolDefault:
		switch typ {
		case unix.SOCK_STREAM:
			return unix.IPPROTO_TCP, nil
		case unix.SOCK_DGRAM:
			return unix.IPPROTO_UDP, nil
		case unix.SOCK_SEQPACKET:
			return unix.IPPROTO_SCTP, nil
		}
	case ProtocolUDPLite:
		if typ == unix.SOCK_DGRAM {
			return unix.IPPROTO_UDPLITE, nil
		}
	case ProtocolSCTP:
		if typ == unix.SOCK_STREAM || typ == unix.SOCK_SEQPACKET {
			return unix.IPPROTO_SCTP, nil
		}
	}
	return 0, fmt.Errorf("%w: %s is not available for %s sockets", ErrSockTypeMismatch, p, TypeName(typ))
}
