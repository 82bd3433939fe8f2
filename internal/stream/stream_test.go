package stream

import (
	"bytes"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubReader(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader([]byte("0123456789abcdef"))

	tests := []struct {
		name string
		off  int64
		n    int64
		want string
	}{
		{"middle", 4, 6, "456789"},
		{"start", 0, 3, "012"},
		{"tail", 10, 6, "abcdef"},
		{"empty", 5, 0, ""},
	}
	for _, tt := range tests {
		sub := NewSubReader(src, tt.off, tt.n)
		got, err := io.ReadAll(sub)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, string(got), tt.name)
		n, err := sub.Read(make([]byte, 1))
		assert.Zero(t, n, tt.name)
		assert.ErrorIs(t, err, io.EOF, tt.name)
	}
}

func TestSubReaderRepositionsSharedSource(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader([]byte("aaaabbbb"))
	a := NewSubReader(src, 0, 4)
	b := NewSubReader(src, 4, 4)

	buf := make([]byte, 2)
	_, err := io.ReadFull(a, buf)
	require.NoError(t, err)
	assert.Equal(t, "aa", string(buf))

	_, err = io.ReadFull(b, buf)
	require.NoError(t, err)
	assert.Equal(t, "bb", string(buf))

	rest, err := io.ReadAll(a)
	require.NoError(t, err)
	assert.Equal(t, "aa", string(rest))
}

func TestSubReaderTruncatedSource(t *testing.T) {
	t.Parallel()

	sub := NewSubReader(bytes.NewReader([]byte("short")), 2, 10)
	_, err := io.ReadAll(sub)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestBuffer(t *testing.T) {
	t.Parallel()

	b := NewBuffer([]byte("hello"))
	assert.False(t, b.Modified())

	got, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	b.Rewind()
	require.NoError(t, b.Truncate(0))
	_, err = b.Write([]byte("new content"))
	require.NoError(t, err)
	assert.True(t, b.Modified())
	assert.Equal(t, int64(11), b.Len())
	assert.Equal(t, "new content", string(b.Bytes()))

	_, err = b.Seek(2, io.SeekEnd)
	require.NoError(t, err)
	_, err = b.Write([]byte("!"))
	require.NoError(t, err)
	assert.Equal(t, "new content\x00\x00!", string(b.Bytes()))

	_, err = b.Seek(-1, io.SeekStart)
	require.Error(t, err)
}

func TestBufferTruncateGrow(t *testing.T) {
	t.Parallel()

	b := NewBuffer([]byte("ab"))
	require.NoError(t, b.Truncate(4))
	assert.Equal(t, []byte{'a', 'b', 0, 0}, b.Bytes())
	require.NoError(t, b.Truncate(1))
	assert.Equal(t, "a", string(b.Bytes()))
}

func TestWrappedCloseLeavesUnderlyingOpen(t *testing.T) {
	t.Parallel()

	buf := NewBuffer([]byte("payload"))
	w := Wrap(buf)
	assert.False(t, w.Closed())
	require.NoError(t, w.Close())
	assert.True(t, w.Closed())

	_, err := w.Read(make([]byte, 1))
	require.ErrorIs(t, err, fs.ErrClosed)
	_, err = w.Write([]byte("x"))
	require.ErrorIs(t, err, fs.ErrClosed)

	got, err := io.ReadAll(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestCountingWriterAndZeros(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cw := &CountingWriter{W: &out}
	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, Zeros(cw, 5000))
	assert.Equal(t, uint64(5003), cw.N)
	assert.Equal(t, 5003, out.Len())
	assert.Equal(t, make([]byte, 5000), out.Bytes()[3:])
}
