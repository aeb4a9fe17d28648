package topology

import "math/bits"

// GPC is one graphics processing cluster. TPCMask has one bit set per
// TPC that belongs to this cluster and is still available for
// assignment.
type GPC struct {
	ID      int    `json:"id"`
	TPCMask uint64 `json:"tpc_mask"`
}

func (g GPC) TPCCount() int {
	return bits.OnesCount64(g.TPCMask)
}

// GPUTopology describes the GPC/TPC layout of one GPU device. The GPC
// order matches the hardware numbering and is significant: striped
// allocation round-robins over it.
type GPUTopology struct {
	Device int    `json:"device"`
	Name   string `json:"name"`
	GPCs   []GPC  `json:"gpcs"`
}

// TotalTPCs counts every TPC across all clusters.
func (t *GPUTopology) TotalTPCs() int {
	total := 0
	for _, g := range t.GPCs {
		total += g.TPCCount()
	}
	return total
}

func (t *GPUTopology) GPCCount() int {
	return len(t.GPCs)
}

// Clone deep-copies the topology so a caller can consume TPCs from the
// copy without touching the original. Every sweep step must work on its
// own copy.
func (t *GPUTopology) Clone() *GPUTopology {
	if t == nil {
		return nil
	}
	out := &GPUTopology{
		Device: t.Device,
		Name:   t.Name,
	}
	if t.GPCs != nil {
		out.GPCs = make([]GPC, len(t.GPCs))
		copy(out.GPCs, t.GPCs)
	}
	return out
}
