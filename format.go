package vnarc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/vnarc/internal/binutil"
	"github.com/meigma/vnarc/internal/cpk"
	"github.com/meigma/vnarc/internal/mpk"
)

// family is the container family named by a signature; the MPK revision is
// only known once the header is read.
type family uint8

const (
	familyMPK family = iota + 1
	familyCPK
)

const signatureSize = 4

// detect classifies the stream by its first four bytes without moving it.
func detect(r io.ReadSeeker) (family, error) {
	sig, err := binutil.Peek(r, signatureSize)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: stream shorter than a signature", ErrUnrecognizedFormat)
		}
		return 0, fmt.Errorf("read signature: %w", err)
	}
	switch {
	case bytes.Equal(sig, mpk.Signature):
		return familyMPK, nil
	case bytes.Equal(sig, cpk.Signature):
		return familyCPK, nil
	default:
		return 0, fmt.Errorf("%w: signature %s", ErrUnrecognizedFormat, binutil.Hex(sig))
	}
}
