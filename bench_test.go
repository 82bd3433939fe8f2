package vnarc

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/meigma/vnarc/internal/stream"
	"github.com/meigma/vnarc/internal/testutil"
)

var (
	benchSinkBytes []byte
	benchSinkInt64 int64
)

func benchArchive(b *testing.B, files, size int, compress bool) []byte {
	b.Helper()
	a := testutil.MPKArchive{Major: 2}
	for i := range files {
		a.Files = append(a.Files, testutil.MPKFile{
			ID:       uint32(i), //nolint:gosec // small benchmark counts
			Name:     fmt.Sprintf("dir%02d/file%04d.dat", i%16, i),
			Data:     testutil.Compressible(size),
			Compress: compress,
		})
	}
	data, _ := testutil.BuildMPK(b, a)
	return data
}

func BenchmarkEntryOpen(b *testing.B) {
	cases := []struct {
		name     string
		size     int
		compress bool
	}{
		{name: "size=16k/none", size: 16 << 10},
		{name: "size=16k/deflate", size: 16 << 10, compress: true},
		{name: "size=1m/deflate", size: 1 << 20, compress: true},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			data := benchArchive(b, 64, tc.size, tc.compress)
			a, err := Open(bytes.NewReader(data), ModeRead)
			if err != nil {
				b.Fatal(err)
			}
			entries := a.Entries()

			b.SetBytes(int64(tc.size))
			b.ReportAllocs()
			b.ResetTimer()
			for i := range b.N {
				r, err := entries[i%len(entries)].Open()
				if err != nil {
					b.Fatal(err)
				}
				n, err := io.Copy(io.Discard, r)
				if err != nil {
					b.Fatal(err)
				}
				r.Close()
				benchSinkInt64 = n
			}
		})
	}
}

func BenchmarkSaveChanges(b *testing.B) {
	for _, edited := range []int{0, 1, 16} {
		b.Run(fmt.Sprintf("files=64/edited=%d", edited), func(b *testing.B) {
			data := benchArchive(b, 64, 16<<10, true)
			patch := testutil.Compressible(20 << 10)

			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for range b.N {
				buf := stream.NewBuffer(bytes.Clone(data))
				a, err := Open(buf, ModeUpdate)
				if err != nil {
					b.Fatal(err)
				}
				for _, e := range a.Entries()[:edited] {
					if err := e.Replace(bytes.NewReader(patch)); err != nil {
						b.Fatal(err)
					}
				}
				if err := a.SaveChanges(); err != nil {
					b.Fatal(err)
				}
				benchSinkBytes = buf.Bytes()
			}
		})
	}
}
