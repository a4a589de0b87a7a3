package sockopt

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/internal/linux"
)

// Error is returned by Apply when a single option could not be set.
type Error struct {
	Option string
	Err    error
}

func (e *Error) Error() string {
	return "unable to set " + e.Option + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// setsockopt is replaced in tests.
var setsockopt = linux.SetsockoptInt

// Apply sets every requested option on fd. Options are applied in a fixed
// order, as later options take precedence over earlier overlapping ones:
// mark, priority, reuse-port, reuse-address, keep-alive, receive buffer,
// send buffer, TTL, ToS and finally DSCP. Options that were not requested
// are left alone.
func Apply(fd int, o *Options) error {
	if v, ok := o.Mark.Get(); ok {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_MARK, int(v), "SO_MARK"); err != nil {
			return &Error{Option: "mark " + o.Mark.String(), Err: err}
		}
	}
	if v, ok := o.Priority.Get(); ok {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_PRIORITY, int(v), "SO_PRIORITY"); err != nil {
			return &Error{Option: "priority " + o.Priority.String(), Err: err}
		}
	}
	if o.ReusePort {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1, "SO_REUSEPORT"); err != nil {
			return &Error{Option: "reuse port", Err: err}
		}
	}
	if o.ReuseAddress {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1, "SO_REUSEADDR"); err != nil {
			return &Error{Option: "reuse address", Err: err}
		}
	}
	if err := setKeepAlive(fd, &o.KeepAlive); err != nil {
		return err
	}
	if v, ok := o.ReceiveBuffer.Get(); ok {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, int(v), "SO_RCVBUF"); err != nil {
			return &Error{Option: "receive buffer " + o.ReceiveBuffer.String(), Err: err}
		}
	}
	if v, ok := o.SendBuffer.Get(); ok {
		if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, int(v), "SO_SNDBUF"); err != nil {
			return &Error{Option: "send buffer " + o.SendBuffer.String(), Err: err}
		}
	}
	if v, ok := o.TTL.Get(); ok {
		if err := setTTL(fd, int(v)); err != nil {
			return &Error{Option: "ttl " + o.TTL.String(), Err: err}
		}
	}
	if v, ok := o.TOS.Get(); ok {
		if err := setTOS(fd, int(v)); err != nil {
			return &Error{Option: "tos " + o.TOS.String(), Err: err}
		}
	}
	// DSCP goes last so that it wins over a ToS set above.
	if v, ok := o.DSCP.Get(); ok {
		if err := setDSCP(fd, int(v)); err != nil {
			return &Error{Option: "dscp " + o.DSCP.String(), Err: err}
		}
	}
	return nil
}

func setKeepAlive(fd int, ka *KeepAlive) error {
	if !ka.Enable {
		return nil
	}
	if err := setsockopt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1, "SO_KEEPALIVE"); err != nil {
		return &Error{Option: "keep-alive", Err: err}
	}
	for _, sub := range []struct {
		name string
		opt  int
		val  Value
	}{
		{"TCP_KEEPIDLE", unix.TCP_KEEPIDLE, ka.Idle},
		{"TCP_KEEPINTVL", unix.TCP_KEEPINTVL, ka.Interval},
		{"TCP_KEEPCNT", unix.TCP_KEEPCNT, ka.Probes},
	} {
		v, ok := sub.val.Get()
		if !ok || v == 0 {
			continue
		}
		if err := setsockopt(fd, unix.IPPROTO_TCP, sub.opt, int(v), sub.name); err != nil {
			return &Error{Option: "keep-alive " + sub.name + " " + sub.val.String(), Err: err}
		}
	}
	return nil
}

// setTTL tries IP_TTL first and falls back to the IPv6 hop limit.
func setTTL(fd, ttl int) error {
	if err := setsockopt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl, "IP_TTL"); err == nil {
		return nil
	}
	return setsockopt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl, "IPV6_UNICAST_HOPS")
}

func setTOS(fd, tos int) error {
	if tos&tosMask != tos {
		return fmt.Errorf("invalid tos value %d (masked %d)", tos, tos&tosMask)
	}
	return setsockopt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos, "IP_TOS")
}

func setDSCP(fd, dscp int) error {
	if dscp < 0 || dscp > MaxDSCP {
		return fmt.Errorf("dscp value %d out of range (0-%d)", dscp, MaxDSCP)
	}
	// The two low bits of the ToS byte carry ECN.
	tos := dscp << 2
	if err := setsockopt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos, "IP_TOS"); err == nil {
		return nil
	}
	return setsockopt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos, "IPV6_TCLASS")
}
