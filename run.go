package main

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/opencontainers/socketrun/libsocket"
)

type launchFunc func(context *cli.Context, config *libsocket.Config) error

// newConfig builds the launch configuration from the global flags, the
// listeners collected while parsing and the application named after "--".
// A missing application is left for Config.Validate to report.
func newConfig(context *cli.Context, listeners *listenerFlags) *libsocket.Config {
	config := libsocket.DefaultConfig()
	if args := context.Args(); len(args) > 0 {
		config.Path = args[0]
		config.Args = []string(args)
	}
	config.Listeners = listeners.listeners
	config.Backlog = context.GlobalInt("Backlog")
	config.SocketUser = context.GlobalString("SocketUser")
	config.SocketGroup = context.GlobalString("SocketGroup")
	config.LockUnixSockets = context.GlobalBool("LockUnixSockets")
	return config
}

// launch runs the application with the configured listeners. It only
// returns on failure.
func launch(context *cli.Context, config *libsocket.Config) error {
	l, err := libsocket.New(config)
	if err != nil {
		return err
	}
	defer l.Close()

	if err := configLogOutput(context); err != nil {
		return err
	}
	for _, lis := range l.Listeners() {
		if lis.Options.TOS.IsSet() {
			logrus.WithField("listener", lis.Label).Warn("--IPTOS is deprecated, use --IPDSCP instead")
		}
	}

	if err := l.Prepare(); err != nil {
		return err
	}
	return l.Exec()
}
