package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// MPK layout constants, restated here so fixtures do not depend on the codec.
const (
	mpkRecordSize  = 256
	mpkFirstV1     = 0x40
	mpkFirstV2     = 0x44
	mpkSectorSize  = 2048
	mpkDefaultData = 0x800
)

// MPKFile is one entry of an MPK fixture.
type MPKFile struct {
	ID       uint32
	Name     string
	Data     []byte
	Compress bool
}

// MPKArchive describes an MPK fixture.
type MPKArchive struct {
	Minor uint16
	Major uint16
	Files []MPKFile

	// DataStart is the offset of the first payload. Zero selects the first
	// sector boundary after the record area.
	DataStart uint64
}

// MPKLayout reports where a fixture placed each payload.
type MPKLayout struct {
	Offsets []uint64
	Stored  [][]byte
}

// BuildMPK assembles an MPK container the way a conforming writer lays it out:
// payloads are sector-padded by length except the last one.
func BuildMPK(tb testing.TB, a MPKArchive) ([]byte, MPKLayout) {
	tb.Helper()

	first := uint64(mpkFirstV1)
	if a.Major == 2 {
		first = mpkFirstV2
	}
	recordsEnd := first + uint64(len(a.Files))*mpkRecordSize
	start := a.DataStart
	if start == 0 {
		start = (recordsEnd + mpkDefaultData - 1) / mpkDefaultData * mpkDefaultData
	}
	if start < recordsEnd {
		tb.Fatalf("data start %#x overlaps records ending at %#x", start, recordsEnd)
	}

	var layout MPKLayout
	data := make([]byte, start)
	copy(data, "MPK\x00")
	binary.LittleEndian.PutUint16(data[4:], a.Minor)
	binary.LittleEndian.PutUint16(data[6:], a.Major)
	if a.Major == 2 {
		binary.LittleEndian.PutUint64(data[8:], uint64(len(a.Files)))
	} else {
		binary.LittleEndian.PutUint32(data[8:], uint32(len(a.Files)))
	}

	for i, f := range a.Files {
		stored := f.Data
		if f.Compress {
			stored = Zlib(tb, f.Data)
		}
		off := uint64(len(data))
		layout.Offsets = append(layout.Offsets, off)
		layout.Stored = append(layout.Stored, stored)
		data = append(data, stored...)
		if i < len(a.Files)-1 {
			pad := (mpkSectorSize - len(stored)%mpkSectorSize) % mpkSectorSize
			if len(stored) == 0 {
				pad = mpkSectorSize
			}
			data = append(data, make([]byte, pad)...)
		}

		rec := data[first+uint64(i)*mpkRecordSize:][:mpkRecordSize]
		putMPKRecord(rec, a.Major, f.ID, off, uint64(len(stored)), uint64(len(f.Data)), f.Name)
	}
	return data, layout
}

func putMPKRecord(rec []byte, major uint16, id uint32, off, comp, raw uint64, name string) {
	binary.LittleEndian.PutUint32(rec[0:], id)
	var nameAt int
	if major == 2 {
		binary.LittleEndian.PutUint64(rec[4:], off)
		binary.LittleEndian.PutUint64(rec[12:], comp)
		binary.LittleEndian.PutUint64(rec[20:], raw)
		nameAt = 28
	} else {
		binary.LittleEndian.PutUint32(rec[4:], uint32(off))
		binary.LittleEndian.PutUint32(rec[8:], uint32(comp))
		binary.LittleEndian.PutUint32(rec[12:], uint32(raw))
		nameAt = 32
	}
	copy(rec[nameAt:len(rec)-1], name)
}

// MPKRecord returns the raw 256-byte record i of an MPK container.
func MPKRecord(data []byte, major uint16, i int) []byte {
	first := mpkFirstV1
	if major == 2 {
		first = mpkFirstV2
	}
	return bytes.Clone(data[first+i*mpkRecordSize:][:mpkRecordSize])
}
