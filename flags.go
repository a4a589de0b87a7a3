package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/opencontainers/socketrun/libsocket"
	"github.com/opencontainers/socketrun/libsocket/endpoint"
	"github.com/opencontainers/socketrun/libsocket/sockopt"
)

// listenerFlags collects listener declarations in command line order. The
// flag package calls Set as it meets each flag, so a per-listener option
// always sees the listeners declared before it.
type listenerFlags struct {
	listeners []libsocket.ListenerConfig
}

// last returns the options of the most recently declared listener.
func (l *listenerFlags) last(name string) (*sockopt.Options, error) {
	if len(l.listeners) == 0 {
		return nil, fmt.Errorf("--%s must follow a listener declaration", name)
	}
	return &l.listeners[len(l.listeners)-1].Options, nil
}

// listenValue declares a listener of one socket type.
type listenValue struct {
	l   *listenerFlags
	typ int
}

func (v *listenValue) Set(s string) error {
	v.l.listeners = append(v.l.listeners, libsocket.ListenerConfig{Endpoint: s, Type: v.typ})
	return nil
}

func (v *listenValue) String() string { return "" }

// optionValue sets one option of the most recently declared listener.
type optionValue struct {
	l     *listenerFlags
	name  string
	apply func(o *sockopt.Options, s string) error
}

func (v *optionValue) Set(s string) error {
	o, err := v.l.last(v.name)
	if err != nil {
		return err
	}
	return v.apply(o, s)
}

func (v *optionValue) String() string { return "" }

// boolOptionValue is an optionValue that may be given without a value.
type boolOptionValue struct {
	optionValue
}

func (*boolOptionValue) IsBoolFlag() bool { return true }

func setValue(parse func(string) (sockopt.Value, error), field func(o *sockopt.Options) *sockopt.Value) func(*sockopt.Options, string) error {
	return func(o *sockopt.Options, s string) error {
		v, err := parse(s)
		if err != nil {
			return err
		}
		*field(o) = v
		return nil
	}
}

func setBool(field func(o *sockopt.Options) *bool) func(*sockopt.Options, string) error {
	return func(o *sockopt.Options, s string) error {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*field(o) = b
		return nil
	}
}

// listenerFlagList returns the flags declaring listeners and their options,
// all feeding l.
func listenerFlagList(l *listenerFlags) []cli.Flag {
	listen := func(name string, typ int, usage string) cli.Flag {
		return cli.GenericFlag{Name: name, Value: &listenValue{l: l, typ: typ}, Usage: usage}
	}
	option := func(name string, apply func(*sockopt.Options, string) error, usage string) cli.Flag {
		return cli.GenericFlag{Name: name, Value: &optionValue{l: l, name: name, apply: apply}, Usage: usage}
	}
	boolOption := func(name string, apply func(*sockopt.Options, string) error, usage string) cli.Flag {
		return cli.GenericFlag{Name: name, Value: &boolOptionValue{optionValue{l: l, name: name, apply: apply}}, Usage: usage}
	}

	return []cli.Flag{
		listen("ListenStream", unix.SOCK_STREAM, "listen on a stream socket (`ENDPOINT` is a port, host:port, /path or x@name)"),
		listen("ListenDatagram", unix.SOCK_DGRAM, "listen on a datagram socket"),
		listen("ListenSequentialPacket", unix.SOCK_SEQPACKET, "listen on a sequential packet socket"),

		option("Mark", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.Mark }),
			"set SO_MARK on the last declared listener"),
		option("Priority", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.Priority }),
			"set SO_PRIORITY on the last declared listener"),
		option("ReceiveBuffer", setValue(sockopt.ParseSize, func(o *sockopt.Options) *sockopt.Value { return &o.ReceiveBuffer }),
			"set SO_RCVBUF on the last declared listener (e.g. 65536 or 64KiB)"),
		option("SendBuffer", setValue(sockopt.ParseSize, func(o *sockopt.Options) *sockopt.Value { return &o.SendBuffer }),
			"set SO_SNDBUF on the last declared listener"),
		option("IPTTL", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.TTL }),
			"set the IP TTL or IPv6 hop limit on the last declared listener"),
		option("IPTOS", setValue(sockopt.ParseTOS, func(o *sockopt.Options) *sockopt.Value { return &o.TOS }),
			"set the IP type of service on the last declared listener (deprecated, use --IPDSCP)"),
		option("IPDSCP", setValue(sockopt.ParseDSCP, func(o *sockopt.Options) *sockopt.Value { return &o.DSCP }),
			"set the DSCP (0-63) on the last declared listener"),
		boolOption("KeepAlive", setBool(func(o *sockopt.Options) *bool { return &o.KeepAlive.Enable }),
			"enable TCP keep-alive on the last declared listener"),
		option("KeepAliveTimeSec", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.KeepAlive.Idle }),
			"set TCP_KEEPIDLE on the last declared listener"),
		option("KeepAliveIntervalSec", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.KeepAlive.Interval }),
			"set TCP_KEEPINTVL on the last declared listener"),
		option("KeepAliveProbes", setValue(sockopt.ParseUint32, func(o *sockopt.Options) *sockopt.Value { return &o.KeepAlive.Probes }),
			"set TCP_KEEPCNT on the last declared listener"),
		boolOption("ReusePort", setBool(func(o *sockopt.Options) *bool { return &o.ReusePort }),
			"set SO_REUSEPORT on the last declared listener"),
		boolOption("ReuseAddress", setBool(func(o *sockopt.Options) *bool { return &o.ReuseAddress }),
			"set SO_REUSEADDR on the last declared listener"),
	}
}

type modeValue struct {
	mode uint32
}

func (v *modeValue) Set(s string) error {
	m, err := libsocket.ParseMode(s)
	if err != nil {
		return err
	}
	v.mode = m
	return nil
}

func (v *modeValue) String() string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%04o", v.mode)
}

type protocolValue struct {
	proto endpoint.Protocol
}

func (v *protocolValue) Set(s string) error {
	p, err := endpoint.ParseProtocol(s)
	if err != nil {
		return err
	}
	v.proto = p
	return nil
}

func (v *protocolValue) String() string {
	if v == nil {
		return ""
	}
	return v.proto.String()
}
