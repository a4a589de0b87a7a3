package user

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupNumeric(t *testing.T) {
	uid, err := LookupUID("12345")
	require.NoError(t, err)
	assert.Equal(t, 12345, uid)

	gid, err := LookupGID("54321")
	require.NoError(t, err)
	assert.Equal(t, 54321, gid)
}

func TestLookupRoot(t *testing.T) {
	if _, err := os.Stat("/etc/passwd"); err != nil {
		t.Skip("no /etc/passwd")
	}
	uid, err := LookupUID("root")
	require.NoError(t, err)
	assert.Equal(t, 0, uid)
}

func TestLookupUnknown(t *testing.T) {
	for _, s := range []string{"socketrun-no-such-name", "-1", "4294967295", ""} {
		_, err := LookupUID(s)
		assert.Error(t, err, s)
		_, err = LookupGID(s)
		assert.Error(t, err, s)
	}
}
