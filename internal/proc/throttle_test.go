package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle(t *testing.T) {
	clock := time.Unix(0, 0)
	th := newThrottle(time.Second)
	th.now = func() time.Time { return clock }

	assert.True(t, th.Allow(), "first emission is immediate")
	assert.False(t, th.Allow(), "second emission inside the interval is dropped")

	clock = clock.Add(500 * time.Millisecond)
	assert.False(t, th.Allow())

	clock = clock.Add(500 * time.Millisecond)
	assert.True(t, th.Allow(), "emission due after a full interval")
	assert.False(t, th.Allow())
}

func TestStripANSI(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"\x1b[1;32;40mbold\x1b[m", "bold"},
		{"move\x1b[2Aup", "moveup"},
		{"\x1b]0;title\x07body", "body"},
		{"\x1b(Bcharset", "charset"},
		{"multi\x1b[31m\x1b[42mline\n\x1b[0m", "multiline\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripANSI(tc.in), "input %q", tc.in)
	}
}

func TestLooksBinary(t *testing.T) {
	assert.False(t, looksBinary(nil))
	assert.False(t, looksBinary([]byte("hello world\n")))
	assert.False(t, looksBinary([]byte("tabs\tand\nnewlines\r\n")))
	assert.True(t, looksBinary([]byte("has\x00nul")))
	assert.True(t, looksBinary([]byte{0x01, 0x02, 0x03, 'a', 0x04, 0x05}))
}

func TestDecode_UTF8PassThrough(t *testing.T) {
	assert.Equal(t, "héllo", decode([]byte("héllo"), "utf-8"))
	assert.Equal(t, "plain", decode([]byte("plain"), ""))
}

func TestDecode_Latin1(t *testing.T) {
	// 0xE9 is é in ISO-8859-1.
	assert.Equal(t, "café", decode([]byte{'c', 'a', 'f', 0xE9}, "iso-8859-1"))
}
