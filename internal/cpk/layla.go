package cpk

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/meigma/vnarc/internal/arctype"
)

var laylaMagic = []byte("CRILAYLA")

const (
	laylaHeaderSize = 16
	laylaPrefixSize = 0x100
)

// laylaLengths are the bit widths of the successive back-reference length
// levels. A level that is all ones continues to the next one.
var laylaLengths = [...]uint{2, 3, 5, 8}

// decodeLayla expands a CRILAYLA stream. The stream stores its first 0x100
// output bytes verbatim after the compressed body; the body itself is a
// bitstream read from its last byte backwards that fills the remaining output
// from its end towards its start.
func decodeLayla(src []byte, maxSize uint64) ([]byte, error) {
	if len(src) < laylaHeaderSize || !bytes.Equal(src[:8], laylaMagic) {
		return nil, fmt.Errorf("%w: missing CRILAYLA header", arctype.ErrDecompression)
	}
	size := uint64(binary.LittleEndian.Uint32(src[8:]))
	bodyLen := uint64(binary.LittleEndian.Uint32(src[12:]))
	if laylaHeaderSize+bodyLen+laylaPrefixSize > uint64(len(src)) {
		return nil, fmt.Errorf("%w: CRILAYLA body of %d bytes exceeds stream of %d", arctype.ErrDecompression, bodyLen, len(src))
	}
	total := size + laylaPrefixSize
	if maxSize > 0 && total > maxSize {
		return nil, fmt.Errorf("CRILAYLA output of %d bytes: %w", total, arctype.ErrSizeOverflow)
	}

	out := make([]byte, total)
	prefixAt := laylaHeaderSize + bodyLen
	copy(out, src[prefixAt:prefixAt+laylaPrefixSize])

	br := backBits{src: src[laylaHeaderSize:prefixAt], pos: int(bodyLen) - 1}
	end := int(total) - 1
	for written := 0; written < int(size); {
		flag, err := br.read(1)
		if err != nil {
			return nil, err
		}
		at := end - written
		if flag == 0 {
			v, err := br.read(8)
			if err != nil {
				return nil, err
			}
			out[at] = byte(v)
			written++
			continue
		}

		dist, err := br.read(13)
		if err != nil {
			return nil, err
		}
		from := at + int(dist) + 3
		length := 3
		level := 0
		for ; level < len(laylaLengths); level++ {
			v, err := br.read(laylaLengths[level])
			if err != nil {
				return nil, err
			}
			length += int(v)
			if v != 1<<laylaLengths[level]-1 {
				break
			}
		}
		if level == len(laylaLengths) {
			for {
				v, err := br.read(8)
				if err != nil {
					return nil, err
				}
				length += int(v)
				if v != 0xff {
					break
				}
			}
		}
		if from > end {
			return nil, fmt.Errorf("%w: CRILAYLA back-reference past output end", arctype.ErrDecompression)
		}
		for i := 0; i < length && written < int(size); i++ {
			out[end-written] = out[from-i]
			written++
		}
	}
	return out, nil
}

// backBits reads bits MSB-first from bytes consumed last to first.
type backBits struct {
	src  []byte
	pos  int
	pool byte
	left uint
}

func (b *backBits) read(n uint) (uint32, error) {
	var v uint32
	for n > 0 {
		if b.left == 0 {
			if b.pos < 0 {
				return 0, fmt.Errorf("%w: CRILAYLA bitstream exhausted", arctype.ErrDecompression)
			}
			b.pool = b.src[b.pos]
			b.pos--
			b.left = 8
		}
		take := min(b.left, n)
		v = v<<take | uint32(b.pool>>(b.left-take))&(1<<take-1)
		b.left -= take
		n -= take
	}
	return v, nil
}
