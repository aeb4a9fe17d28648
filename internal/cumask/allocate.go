package cumask

import (
	"errors"
	"fmt"

	"cusweep/internal/topology"
)

var (
	ErrInvalidRange      = errors.New("invalid unit count range")
	ErrInsufficientUnits = errors.New("insufficient compute units")
)

// maskWidth is the fixed width of the wire mask. Unit counts above it
// cannot be represented.
const maskWidth = 64

// Allocate produces the CU mask for one sweep step. The returned mask
// is already inverted into the runner's disabled-bit convention; both
// modes emit bit-identical masks for equivalent inputs.
//
// Striped mode needs a topology descriptor and never mutates it: the
// round-robin consumes TPCs from a private copy of the group masks.
func Allocate(activeCount, totalCount int, mode Mode, topo *topology.GPUTopology) (Mask, error) {
	if activeCount < 0 || totalCount <= 0 {
		return 0, fmt.Errorf("%w: active count %d, total count %d", ErrInvalidRange, activeCount, totalCount)
	}
	if totalCount > maskWidth {
		return 0, fmt.Errorf("%w: total count %d exceeds the %d-bit mask", ErrInvalidRange, totalCount, maskWidth)
	}
	if activeCount > totalCount {
		return 0, fmt.Errorf("%w: requested %d active units, device has %d", ErrInsufficientUnits, activeCount, totalCount)
	}

	var selected uint64
	switch mode {
	case ModeContiguous:
		selected = contiguousBits(activeCount)
	case ModeStriped:
		bits, err := stripedBits(activeCount, topo)
		if err != nil {
			return 0, err
		}
		selected = bits
	default:
		return 0, fmt.Errorf("%w: unknown allocation mode %q", ErrInvalidRange, mode)
	}

	return Mask(^selected), nil
}

// contiguousBits fills the low activeCount bits, one shift-and-OR per
// unit.
func contiguousBits(activeCount int) uint64 {
	var enabled uint64
	for b := 0; b < activeCount; b++ {
		enabled <<= 1
		enabled |= 1
	}
	return enabled
}

// stripedBits spreads the selection across GPCs as evenly as possible.
// A cursor walks the groups in descriptor order; each assignment takes
// the rightmost available TPC of the first non-empty group at or after
// the cursor, then moves the cursor past that group. Ties therefore
// break by ascending group index, then ascending bit position.
func stripedBits(activeCount int, topo *topology.GPUTopology) (uint64, error) {
	if topo == nil || topo.GPCCount() == 0 {
		return 0, fmt.Errorf("%w: striped allocation needs a GPC topology", topology.ErrTopologyUnavailable)
	}

	available := topo.TotalTPCs()
	if available < activeCount {
		return 0, fmt.Errorf("%w: requested %d active units, GPC masks hold %d", ErrInsufficientUnits, activeCount, available)
	}

	groups := make([]uint64, len(topo.GPCs))
	for i, g := range topo.GPCs {
		groups[i] = g.TPCMask
	}

	var enabled uint64
	cursor := 0
	for assigned := 0; assigned < activeCount; assigned++ {
		found := false
		for scanned := 0; scanned < len(groups); scanned++ {
			idx := (cursor + scanned) % len(groups)
			mask := groups[idx]
			if mask == 0 {
				continue
			}
			bit := mask & (-mask)
			enabled |= bit
			groups[idx] &^= bit
			cursor = (idx + 1) % len(groups)
			found = true
			break
		}
		if !found {
			// Unreachable given the precheck above; an exhausted scan
			// here means the group masks changed under us.
			return 0, fmt.Errorf("%w: ran out of TPCs after %d of %d assignments", ErrInsufficientUnits, assigned, activeCount)
		}
	}

	return enabled, nil
}
