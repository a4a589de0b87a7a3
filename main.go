package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/opencontainers/socketrun/libsocket"
)

// version is set with go build's -X main.version= option.
var version = "unknown"

// gitCommit will be the hash that the binary was built from,
// set with -X main.gitCommit=.
var gitCommit = ""

const usage = `socket activation launcher

socketrun creates, configures and binds the requested listening sockets, then
replaces itself with the application, which receives the sockets as
descriptors 3 and up together with LISTEN_PID and LISTEN_FDS, as if it had
been started by systemd.

Listener options such as --Mark or --KeepAlive apply to the listener declared
last before them:

    # socketrun --ListenStream 8080 --ReusePort --ListenDatagram /run/app/app.sock -- /usr/bin/app -v

Endpoints are a port, a numeric host:port, an absolute path of a unix socket,
or x@name for an abstract unix socket.`

func main() {
	app := newApp(launch)
	// If the command returns an error, cli takes upon itself to print
	// the error on cli.ErrWriter and exit.
	// Use our own writer here to ensure the log gets sent to the right location.
	cli.ErrWriter = &FatalWriter{cli.ErrWriter}
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp(launch launchFunc) *cli.App {
	app := cli.NewApp()
	app.Name = "socketrun"
	app.Usage = usage
	app.ArgsUsage = "-- APP [ARGS...]"

	v := []string{version}
	if gitCommit != "" {
		v = append(v, "commit: "+gitCommit)
	}
	v = append(v, "go: "+runtime.Version())
	app.Version = strings.Join(v, "\n")

	listeners := &listenerFlags{}
	socketMode := &modeValue{mode: libsocket.DefaultSocketMode}
	directoryMode := &modeValue{mode: libsocket.DefaultDirectoryMode}
	protocol := &protocolValue{}

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file to write socketrun logs to (default is '/dev/stderr')",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the log format ('text' (default), or 'json')",
		},
		cli.GenericFlag{
			Name:  "SocketProtocol",
			Value: protocol,
			Usage: "use udplite (datagram) or sctp (stream, sequential packet) for internet listeners",
		},
		cli.IntFlag{
			Name:  "Backlog",
			Value: libsocket.DefaultBacklog,
			Usage: "listen backlog of stream and sequential packet listeners",
		},
		cli.StringFlag{
			Name:  "SocketUser",
			Usage: "owner of unix socket files (name or uid)",
		},
		cli.StringFlag{
			Name:  "SocketGroup",
			Usage: "group of unix socket files (name or gid)",
		},
		cli.GenericFlag{
			Name:  "SocketMode",
			Value: socketMode,
			Usage: "octal permissions of unix socket files",
		},
		cli.GenericFlag{
			Name:  "DirectoryMode",
			Value: directoryMode,
			Usage: "octal permissions of directories created for unix socket files",
		},
		cli.BoolFlag{
			Name:  "LockUnixSockets",
			Usage: "take a lock next to each unix socket file and remove a stale socket once locked",
		},
	}
	app.Flags = append(app.Flags, listenerFlagList(listeners)...)
	app.Before = configLogrus

	app.Action = func(context *cli.Context) error {
		config := newConfig(context, listeners)
		config.Protocol = protocol.proto
		config.SocketMode = socketMode.mode
		config.DirectoryMode = directoryMode.mode
		if config.Path == "" {
			if err := cli.ShowAppHelp(context); err != nil {
				return err
			}
			return config.Validate()
		}
		return launch(context, config)
	}
	return app
}

type FatalWriter struct {
	cliErrWriter io.Writer
}

func (f *FatalWriter) Write(p []byte) (n int, err error) {
	logrus.Error(string(p))
	if !logrusToStderr() {
		return f.cliErrWriter.Write(p)
	}
	return len(p), nil
}

func logrusToStderr() bool {
	l, ok := logrus.StandardLogger().Out.(*os.File)
	return ok && l.Fd() == os.Stderr.Fd()
}

func configLogrus(context *cli.Context) error {
	if context.GlobalBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
		// Shorten function and file names reported by the logger, by
		// trimming common "github.com/opencontainers/socketrun" prefix.
		// This is only done for text formatter.
		_, file, _, _ := runtime.Caller(0)
		prefix := filepath.Dir(file) + "/"
		logrus.SetFormatter(&logrus.TextFormatter{
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				function := strings.TrimPrefix(f.Function, prefix) + "()"
				fileLine := strings.TrimPrefix(f.File, prefix) + ":" + strconv.Itoa(f.Line)
				return function, fileLine
			},
		})
	}

	switch f := context.GlobalString("log-format"); f {
	case "":
		// do nothing
	case "text":
		// do nothing
	case "json":
		logrus.SetFormatter(new(logrus.JSONFormatter))
	default:
		return errors.New("invalid log-format: " + f)
	}

	return nil
}

// configLogOutput redirects the log to the file given by --log.
func configLogOutput(context *cli.Context) error {
	if file := context.GlobalString("log"); file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o644)
		if err != nil {
			return err
		}
		logrus.SetOutput(f)
	}

	return nil
}
