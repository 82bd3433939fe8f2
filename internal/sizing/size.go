// Package sizing provides overflow-checked size arithmetic and sector alignment.
package sizing

import "math"

// SectorSize is the alignment unit for entry payloads in rewritten containers.
const SectorSize = 2048

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// ToUint32 narrows a uint64 to uint32, returning overflowErr if it doesn't fit.
func ToUint32(v uint64, overflowErr error) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(v), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// SectorPadding returns the number of zero bytes needed after n payload bytes
// to reach the next positive multiple of SectorSize. Zero when n is already
// aligned; an empty payload still occupies one full sector.
func SectorPadding(n uint64) uint64 {
	if n == 0 {
		return SectorSize
	}
	return (SectorSize - n%SectorSize) % SectorSize
}
