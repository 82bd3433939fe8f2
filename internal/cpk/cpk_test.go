package cpk

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/vnarc/internal/arctype"
	"github.com/meigma/vnarc/internal/testutil"
)

func readArchive(t *testing.T, data []byte) *Archive {
	t.Helper()
	a, err := Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return a
}

func readEntry(t *testing.T, data []byte, e *arctype.Entry) []byte {
	t.Helper()
	r, err := Open(bytes.NewReader(data), e, 0)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	return got
}

func TestReadPlainAndObfuscated(t *testing.T) {
	t.Parallel()

	files := []testutil.CPKFile{
		{Dir: "script", Name: "boot.scx", Data: []byte("boot script"), ID: 10},
		{Name: "title.png", Data: bytes.Repeat([]byte{0x89}, 3000), ID: 11},
		{Dir: "bgm/op", Name: "theme.ogg", Data: []byte("OggS"), ID: 12},
	}

	for _, obfuscate := range []bool{false, true} {
		data := testutil.BuildCPK(testutil.CPKArchive{Files: files, Obfuscate: obfuscate, Comment: "release"})
		a := readArchive(t, data)

		assert.Equal(t, uint32(3), a.Header.Files)
		assert.Equal(t, uint16(7), a.Header.Version)
		assert.Equal(t, uint16(0x800), a.Header.Align)
		assert.Equal(t, "release", a.Header.Comment)
		assert.Equal(t, uint64(0x800), a.Header.TocOffset)
		assert.Zero(t, a.Header.EtocOffset)
		require.Contains(t, a.Header.Extra, "Tvers")
		assert.Equal(t, "CPKMC2.49.32", a.Header.Extra["Tvers"].String())
		assert.Equal(t, uint64(1), a.Header.Extra["CpkMode"].Uint())

		require.Len(t, a.Entries, 3)
		wantNames := []string{"script/boot.scx", "title.png", "bgm/op/theme.ogg"}
		for i, e := range a.Entries {
			assert.Equal(t, uint32(i), e.ID, "ids are sequential")
			assert.Equal(t, files[i].ID, e.FileID)
			assert.Equal(t, uint64(files[i].ID), e.Extra["ID"].Uint())
			assert.Equal(t, wantNames[i], e.Name)
			assert.Equal(t, arctype.CompressionNone, e.Compression)
			assert.Equal(t, "<NULL>", e.Extra["UserString"].String())
			assert.Equal(t, files[i].Data, readEntry(t, data, &a.Entries[i].Entry))
		}
	}
}

func TestReadLaylaEntries(t *testing.T) {
	t.Parallel()

	literal := append(bytes.Repeat([]byte{'P'}, 0x100), testutil.Compressible(700)...)

	prefix := bytes.Repeat([]byte{'H'}, 0x100)
	backref := append(append([]byte(nil), prefix...), "ABCABC"...)
	ops := []testutil.LaylaOp{
		{Literal: 'C'},
		{Literal: 'B'},
		{Literal: 'A'},
		{Distance: 3, Length: 3},
	}

	data := testutil.BuildCPK(testutil.CPKArchive{
		Obfuscate: true,
		Files: []testutil.CPKFile{
			{Name: "literal.bin", Data: literal, Stored: testutil.EncodeLayla(literal)},
			{Name: "backref.bin", Data: backref, Stored: testutil.EncodeLaylaOps(prefix, 6, ops)},
		},
	})
	a := readArchive(t, data)
	require.Len(t, a.Entries, 2)

	for i, want := range [][]byte{literal, backref} {
		e := &a.Entries[i].Entry
		assert.Equal(t, arctype.CompressionLayla, e.Compression)
		assert.Equal(t, uint64(len(want)), e.UncompressedSize)
		assert.Equal(t, want, readEntry(t, data, e))
	}
}

func TestOpenLaylaRespectsMaxSize(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{'z'}, 0x180)
	data := testutil.BuildCPK(testutil.CPKArchive{
		Files: []testutil.CPKFile{{Name: "big", Data: payload, Stored: testutil.EncodeLayla(payload)}},
	})
	a := readArchive(t, data)

	_, err := Open(bytes.NewReader(data), &a.Entries[0].Entry, 0x100)
	require.ErrorIs(t, err, arctype.ErrSizeOverflow)
}

func TestDecodeLaylaRejectsCorruptStreams(t *testing.T) {
	t.Parallel()

	_, err := decodeLayla([]byte("NOTLAYLA........"), 0)
	require.ErrorIs(t, err, arctype.ErrDecompression)
	require.ErrorIs(t, err, arctype.ErrInvalidData)

	payload := bytes.Repeat([]byte{'q'}, 0x110)
	stream := testutil.EncodeLayla(payload)
	// Claim more output than the bitstream can produce.
	binary.LittleEndian.PutUint32(stream[8:], 0x1000)
	_, err = decodeLayla(stream, 0)
	require.ErrorIs(t, err, arctype.ErrDecompression)
}

func TestReadRejectsBadContainers(t *testing.T) {
	t.Parallel()

	good := testutil.BuildCPK(testutil.CPKArchive{
		Files: []testutil.CPKFile{{Name: "a", Data: []byte("aaaa")}},
	})

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		data := bytes.Clone(good)
		copy(data, "XPK ")
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, arctype.ErrInvalidData)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		data := good[:0x40]
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, arctype.ErrInvalidData)
	})

	t.Run("missing toc tag", func(t *testing.T) {
		t.Parallel()
		data := bytes.Clone(good)
		copy(data[0x800:], "XXXX")
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, arctype.ErrInvalidData)
	})

	t.Run("entry past end", func(t *testing.T) {
		t.Parallel()
		data := testutil.BuildCPK(testutil.CPKArchive{
			Files: []testutil.CPKFile{{Name: "a", Data: bytes.Repeat([]byte{1}, 4096)}},
		})
		data = data[:len(data)-10]
		_, err := Read(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, arctype.ErrInvalidData)
	})
}
