package utils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var envTest = []struct {
	env    []string
	query  string
	expVal string
	expOk  bool
}{
	{[]string{"LISTEN_FDS=2"}, "LISTEN_FDS", "2", true},
	{[]string{"LISTEN_PID=1", "LISTEN_FDNAMES="}, "LISTEN_FDS", "", false},
	{[]string{"LISTEN_FDS=a", "HOME=/", "LISTEN_FDS=c"}, "LISTEN_FDS", "a", true},
	{[]string{"", "PATH=/bin", "LISTEN_FDS=b"}, "LISTEN_FDS", "b", true},
	{[]string{"PATH", "LISTEN_FDNAMES="}, "LISTEN_FDNAMES", "", true},
}

func TestSearchEnv(t *testing.T) {
	for _, tt := range envTest {
		v, ok := SearchEnv(tt.env, tt.query)
		assert.Equal(t, tt.expOk, ok, "query %q in %q", tt.query, tt.env)
		assert.Equal(t, tt.expVal, v, "query %q in %q", tt.query, tt.env)
	}
}

func TestWithoutEnv(t *testing.T) {
	env := []string{"A=1", "LISTEN_FDS=4", "B=2", "LISTEN_PID=10", "LISTEN_FDS_X=1", "LISTEN_FDS=5"}
	assert.Equal(t,
		[]string{"A=1", "B=2", "LISTEN_FDS_X=1"},
		WithoutEnv(env, "LISTEN_FDS", "LISTEN_PID"))
	assert.Empty(t, WithoutEnv(nil, "A"))
}

func TestCloseExecFrom(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	fd, err := unix.Dup(int(r.Fd()))
	require.NoError(t, err)
	defer unix.Close(fd)

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	require.NoError(t, err)
	require.Zero(t, flags&unix.FD_CLOEXEC, "dup(2) does not set O_CLOEXEC")

	require.NoError(t, CloseExecFrom(fd))
	flags, err = unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.FD_CLOEXEC)
}

func TestOpenFds(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fds, err := OpenFds()
	require.NoError(t, err)
	assert.Contains(t, fds, int(r.Fd()))
	assert.True(t, IsOpen(int(w.Fd())))
	assert.False(t, IsOpen(1<<20))
}
