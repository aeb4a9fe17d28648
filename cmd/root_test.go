package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cusweep/internal/topology"
)

func testTopology() *topology.GPUTopology {
	return &topology.GPUTopology{
		Device: 0,
		Name:   "test-gpu",
		GPCs: []topology.GPC{
			{ID: 0, TPCMask: 0xF},
			{ID: 1, TPCMask: 0xF0},
		},
	}
}

func TestValidate(t *testing.T) {
	topo := testTopology() // 8 TPCs

	tests := []struct {
		name    string
		opts    *Options
		topo    *topology.GPUTopology
		wantErr bool
	}{
		{name: "nil options", opts: nil, wantErr: true},
		{name: "topology only", opts: &Options{ShowTopology: true}, topo: topo},
		{name: "topology json", opts: &Options{ShowTopology: true, JSON: true}, topo: topo},
		{name: "json without topology", opts: &Options{JSON: true}, topo: topo, wantErr: true},
		{name: "topology with run", opts: &Options{ShowTopology: true, Run: true}, topo: topo, wantErr: true},
		{name: "dry-run without run", opts: &Options{DryRun: true}, topo: topo, wantErr: true},
		{name: "negative device", opts: &Options{Run: true, Device: -1, CUCount: 4}, topo: topo, wantErr: true},

		{name: "run with explicit count", opts: &Options{Run: true, CUCount: 8}, topo: topo},
		{name: "run with auto count", opts: &Options{Run: true}, topo: topo},
		{name: "run striped", opts: &Options{Run: true, Stripe: true}, topo: topo},
		{name: "run resumed", opts: &Options{Run: true, CUCount: 8, StartCount: 5}, topo: topo},
		{name: "run dry-run", opts: &Options{Run: true, CUCount: 8, DryRun: true}, topo: topo},
		{name: "run without topology needs count", opts: &Options{Run: true}, wantErr: true},
		{name: "run contiguous without topology", opts: &Options{Run: true, CUCount: 8}},
		{name: "negative cu_count", opts: &Options{Run: true, CUCount: -1}, topo: topo, wantErr: true},
		{name: "negative start_count", opts: &Options{Run: true, CUCount: 8, StartCount: -1}, topo: topo, wantErr: true},
		{name: "count above hardware", opts: &Options{Run: true, CUCount: 9}, topo: topo, wantErr: true},
		{name: "start at count", opts: &Options{Run: true, CUCount: 8, StartCount: 8}, topo: topo, wantErr: true},
		{name: "start above count", opts: &Options{Run: true, CUCount: 8, StartCount: 12}, topo: topo, wantErr: true},

		{name: "interactive clean", opts: &Options{}, topo: topo},
		{name: "interactive with sweep flags", opts: &Options{CUCount: 4}, topo: topo, wantErr: true},
		{name: "interactive with stripe", opts: &Options{Stripe: true}, topo: topo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.opts, tt.topo)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArguments)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
