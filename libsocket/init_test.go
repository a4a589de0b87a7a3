package libsocket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"
)

// The test binary doubles as both the launcher and the launched
// application, selected by os.Args[1]:
//
//	launch  run New/Prepare/Exec with the config in $testConfigEnv and
//	        exec this binary again as "child"
//	child   report the inherited environment and descriptors as JSON on
//	        stdout, then optionally wait for stdin to be closed
func init() {
	if len(os.Args) < 2 {
		return
	}
	switch os.Args[1] {
	case "launch":
		if err := testLaunch(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "child":
		if err := testChild(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
}

const (
	testConfigEnv = "_SOCKETRUN_TEST_CONFIG"
	testWaitEnv   = "_SOCKETRUN_TEST_WAIT"
)

type testConfig struct {
	Listeners []ListenerConfig
	Lock      bool
}

type fdReport struct {
	Fd        int
	Domain    int
	Type      int
	Listening bool
}

type childReport struct {
	Pid           int
	ListenPid     string
	ListenFds     string
	ListenFdNames *string
	Fds           []fdReport
	// Following is what the descriptor right after the listeners refers
	// to, if it is open.
	Following string
}

func testLaunch() error {
	var tc testConfig
	if err := json.Unmarshal([]byte(os.Getenv(testConfigEnv)), &tc); err != nil {
		return err
	}
	self, err := os.Executable()
	if err != nil {
		return err
	}
	config := DefaultConfig()
	config.Path = self
	config.Args = []string{self, "child"}
	config.Listeners = tc.Listeners
	config.LockUnixSockets = tc.Lock

	l, err := New(config)
	if err != nil {
		return err
	}
	if err := l.Prepare(); err != nil {
		return err
	}
	return l.Exec()
}

func testChild() error {
	r := childReport{Pid: os.Getpid()}
	r.ListenPid = os.Getenv("LISTEN_PID")
	r.ListenFds = os.Getenv("LISTEN_FDS")
	if names, ok := os.LookupEnv("LISTEN_FDNAMES"); ok {
		r.ListenFdNames = &names
	}
	for _, f := range activation.Files(false) {
		fd := int(f.Fd())
		domain, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_DOMAIN)
		if err != nil {
			return fmt.Errorf("fd %d: %w", fd, err)
		}
		typ, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
		if err != nil {
			return fmt.Errorf("fd %d: %w", fd, err)
		}
		acc, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ACCEPTCONN)
		if err != nil {
			return fmt.Errorf("fd %d: %w", fd, err)
		}
		r.Fds = append(r.Fds, fdReport{Fd: fd, Domain: domain, Type: typ, Listening: acc != 0})
	}
	next := 3 + len(r.Fds)
	if target, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(next)); err == nil {
		r.Following = target
	}
	if err := json.NewEncoder(os.Stdout).Encode(r); err != nil {
		return err
	}
	if os.Getenv(testWaitEnv) != "" {
		// Hold on to the descriptors until the test is done with us.
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}
	return nil
}

func testConfigEnvValue(tc testConfig) (string, error) {
	b, err := json.Marshal(tc)
	if err != nil {
		return "", err
	}
	return testConfigEnv + "=" + strings.TrimSpace(string(b)), nil
}
