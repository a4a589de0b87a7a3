// Package sockopt applies socket level tuning options to unbound sockets.
package sockopt

import (
	"fmt"
	"math"
	"strconv"

	"github.com/docker/go-units"
)

// Value is an option value together with whether it was requested. Zero is
// a legal value for several options, so the two must not be conflated.
type Value struct {
	v   uint32
	set bool
}

// Set returns a requested Value.
func Set(v uint32) Value {
	return Value{v: v, set: true}
}

// Get returns the value and whether it was requested.
func (o Value) Get() (uint32, bool) {
	return o.v, o.set
}

// IsSet reports whether the value was requested.
func (o Value) IsSet() bool {
	return o.set
}

func (o Value) String() string {
	if !o.set {
		return "<unset>"
	}
	return strconv.FormatUint(uint64(o.v), 10)
}

// KeepAlive configures TCP keep-alive probing.
type KeepAlive struct {
	Enable bool
	// Idle is TCP_KEEPIDLE, in seconds.
	Idle Value
	// Interval is TCP_KEEPINTVL, in seconds.
	Interval Value
	// Probes is TCP_KEEPCNT.
	Probes Value
}

// Options is the set of options for one socket.
type Options struct {
	Mark          Value
	Priority      Value
	ReusePort     bool
	ReuseAddress  bool
	KeepAlive     KeepAlive
	ReceiveBuffer Value
	SendBuffer    Value
	TTL           Value
	// TOS is the legacy IP type of service byte. Prefer DSCP.
	TOS  Value
	DSCP Value
}

// IP type of service values (RFC 1349), as in <netinet/ip.h>.
const (
	tosMask        = 0x1e
	tosLowDelay    = 0x10
	tosThroughput  = 0x08
	tosReliability = 0x04
	tosLowCost     = 0x02
)

// MaxDSCP is the largest differentiated services code point.
const MaxDSCP = 63

// ParseUint32 parses a decimal 32-bit value.
func ParseUint32(s string) (Value, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Value{}, err
	}
	return Set(uint32(v)), nil
}

// ParseSize parses a buffer size such as "65536", "64KiB" or "4M".
func ParseSize(s string) (Value, error) {
	v, err := units.RAMInBytes(s)
	if err != nil {
		return Value{}, err
	}
	if v < 0 || v > math.MaxInt32 {
		return Value{}, fmt.Errorf("buffer size %q out of range", s)
	}
	return Set(uint32(v)), nil
}

// ParseTOS parses a legacy type of service value, either numeric or one of
// low-delay, throughput, reliability and low-cost.
func ParseTOS(s string) (Value, error) {
	switch s {
	case "low-delay":
		return Set(tosLowDelay), nil
	case "throughput":
		return Set(tosThroughput), nil
	case "reliability":
		return Set(tosReliability), nil
	case "low-cost":
		return Set(tosLowCost), nil
	}
	v, err := ParseUint32(s)
	if err != nil {
		return Value{}, err
	}
	if v.v&tosMask != v.v {
		return Value{}, fmt.Errorf("invalid tos value %d (masked %d)", v.v, v.v&tosMask)
	}
	return v, nil
}

// ParseDSCP parses a differentiated services code point (0-63).
func ParseDSCP(s string) (Value, error) {
	v, err := ParseUint32(s)
	if err != nil {
		return Value{}, err
	}
	if v.v > MaxDSCP {
		return Value{}, fmt.Errorf("dscp value %d out of range (0-%d)", v.v, MaxDSCP)
	}
	return v, nil
}
