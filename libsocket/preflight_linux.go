package libsocket

import (
	"github.com/moby/sys/userns"
	"github.com/sirupsen/logrus"
	"github.com/syndtr/gocapability/capability"

	"github.com/opencontainers/socketrun/libsocket/endpoint"
)

// privilegedPort is the default net.ipv4.ip_unprivileged_port_start.
const privilegedPort = 1024

// maxUnprivilegedPriority is the largest SO_PRIORITY settable without
// CAP_NET_ADMIN.
const maxUnprivilegedPriority = 6

// preflight warns about options that are likely to fail for lack of
// privileges. It never fails the launch; the kernel has the final word.
func preflight(config *Config, listeners []*Listener) {
	caps, err := capability.NewPid2(0)
	if err == nil {
		err = caps.Load()
	}
	if err != nil {
		logrus.Debugf("unable to read capabilities: %v", err)
		return
	}
	has := func(c capability.Cap) bool {
		return caps.Get(capability.EFFECTIVE, c)
	}
	hint := ""
	if userns.RunningInUserNS() {
		hint = " (running in a user namespace)"
	}

	for _, l := range listeners {
		log := logrus.WithField("listener", l.Label)
		if a, ok := l.Addr.(*endpoint.InetAddr); ok {
			if p := a.AddrPort.Port(); p != 0 && p < privilegedPort && !has(capability.CAP_NET_BIND_SERVICE) {
				log.Warnf("port %d is privileged and CAP_NET_BIND_SERVICE is missing%s", p, hint)
			}
		}
		if l.Options.Mark.IsSet() && !has(capability.CAP_NET_ADMIN) {
			log.Warnf("setting a mark requires CAP_NET_ADMIN%s", hint)
		}
		if v, ok := l.Options.Priority.Get(); ok && v > maxUnprivilegedPriority && !has(capability.CAP_NET_ADMIN) {
			log.Warnf("priority %d requires CAP_NET_ADMIN%s", v, hint)
		}
		if l.Path() != "" && config.SocketUser != "" && !has(capability.CAP_CHOWN) {
			log.Warnf("changing the socket owner requires CAP_CHOWN%s", hint)
		}
	}
}
