package sockopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	var v Value
	_, ok := v.Get()
	assert.False(t, ok)
	assert.Equal(t, "<unset>", v.String())

	v = Set(0)
	n, ok := v.Get()
	assert.True(t, ok)
	assert.Zero(t, n)
	assert.Equal(t, "0", v.String())
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]uint32{
		"0":      0,
		"65536":  65536,
		"64KiB":  64 << 10,
		"4M":     4 << 20,
		"1.5KiB": 1536,
	} {
		v, err := ParseSize(in)
		require.NoError(t, err, in)
		n, _ := v.Get()
		assert.Equal(t, want, n, in)
	}
	for _, in := range []string{"", "lots", "-1", "3GiB"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}

func TestParseTOS(t *testing.T) {
	for in, want := range map[string]uint32{
		"low-delay":   0x10,
		"throughput":  0x08,
		"reliability": 0x04,
		"low-cost":    0x02,
		"0":           0,
		"16":          16,
		"30":          30,
	} {
		v, err := ParseTOS(in)
		require.NoError(t, err, in)
		n, _ := v.Get()
		assert.Equal(t, want, n, in)
	}
	for _, in := range []string{"1", "3", "32", "fast"} {
		_, err := ParseTOS(in)
		assert.Error(t, err, in)
	}
}

func TestParseDSCP(t *testing.T) {
	v, err := ParseDSCP("63")
	require.NoError(t, err)
	n, _ := v.Get()
	assert.EqualValues(t, 63, n)

	_, err = ParseDSCP("64")
	assert.Error(t, err)
	_, err = ParseDSCP("-1")
	assert.Error(t, err)
}

func TestParseUint32(t *testing.T) {
	v, err := ParseUint32("4294967295")
	require.NoError(t, err)
	n, _ := v.Get()
	assert.EqualValues(t, uint32(4294967295), n)

	_, err = ParseUint32("4294967296")
	assert.Error(t, err)
}
