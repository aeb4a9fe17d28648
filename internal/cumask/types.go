package cumask

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeContiguous Mode = "contiguous"
	ModeStriped    Mode = "striped"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeContiguous:
		return ModeContiguous, nil
	case ModeStriped:
		return ModeStriped, nil
	default:
		return "", fmt.Errorf("invalid allocation mode %q (valid: contiguous, striped)", s)
	}
}

// Mask is the compute-unit mask in the runner's wire convention: a set
// bit disables a TPC, a clear bit leaves it enabled. Allocation works
// in terms of the enabled set and inverts on the way out.
type Mask uint64

// HexWidth is the number of hex digits in the wire encoding.
const HexWidth = 16

// HexString encodes the mask as the runner expects it: zero-padded,
// lowercase, exactly 16 hex digits.
func (m Mask) HexString() string {
	return fmt.Sprintf("%016x", uint64(m))
}

var errBadHexMask = errors.New("malformed CU mask hex string")

// ParseHex is the strict inverse of HexString.
func ParseHex(s string) (Mask, error) {
	if len(s) != HexWidth {
		return 0, fmt.Errorf("%w: %q is %d chars, want %d", errBadHexMask, s, len(s), HexWidth)
	}
	value, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadHexMask, err)
	}
	return Mask(value), nil
}

// EnabledBits returns the mask of enabled TPCs (the complement of the
// wire value).
func (m Mask) EnabledBits() uint64 {
	return ^uint64(m)
}

// EnabledCount counts enabled TPCs. Benchmark labels come from here,
// never from the requested count, so a broken allocation shows up in
// the output files.
func (m Mask) EnabledCount() int {
	return bits.OnesCount64(^uint64(m))
}
