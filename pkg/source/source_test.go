package source

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func TestLineFeed(t *testing.T) {
	f := NewLineFeed(strings.NewReader("4000\r\n\nabc\n12"))

	var lines []string
	for {
		b, err := f.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		lines = append(lines, string(b))
	}
	assert.Equal(t, []string{"4000", "", "abc", "12"}, lines)
}

func TestLineFeedError(t *testing.T) {
	f := NewLineFeed(iotest.ErrReader(errors.New("boom")))
	_, err := f.Next()
	assert.EqualError(t, err, "boom")
}

func TestChunkFeed(t *testing.T) {
	f := NewChunkFeed(strings.NewReader("0101100111"), 4)

	var chunks []string
	for {
		b, err := f.Next()
		if len(b) > 0 {
			chunks = append(chunks, string(b))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"0101", "1001", "11"}, chunks)
}

func TestChunkFeedDefaultSize(t *testing.T) {
	f := NewChunkFeed(strings.NewReader(""), 0)
	assert.Len(t, f.buf, DefaultChunkSize)
}

type fakeLine struct {
	values []int
	next   int
}

func (l *fakeLine) Value() (int, error) {
	if l.next >= len(l.values) {
		return 0, errors.New("line released")
	}
	v := l.values[l.next]
	l.next++
	return v, nil
}

func TestGPIOSampler(t *testing.T) {
	s := newSampler(&fakeLine{values: []int{1, 1, 0, 1, 0}}, 10000)

	p := make([]byte, 4)
	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "1101", string(p[:n]))

	n, err = s.Read(p)
	assert.Equal(t, 1, n)
	assert.EqualError(t, err, "line released")
	assert.Equal(t, "0", string(p[:n]))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	n, err = s.Read(p)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenInvalid(t *testing.T) {
	_, err := Open(Config{Kind: "usb"})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = OpenSerial("/dev/null", 1234)
	assert.ErrorIs(t, err, ErrUnsupportedBaud)

	_, err = OpenGPIO("gpiochip0", 4, "pullup", 0)
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = OpenGPIO("gpiochip0", 4, "floating", 1000)
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = Open(Config{Kind: KindFile, Device: "/nonexistent/capture.txt"})
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	name := t.TempDir() + "/capture.txt"
	require.NoError(t, os.WriteFile(name, []byte("1\n2\n"), 0o600))

	r, err := Open(Config{Kind: KindFile, Device: name})
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	b, err := NewLineFeed(r).Next()
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}
