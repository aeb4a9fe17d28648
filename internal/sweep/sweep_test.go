package sweep

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cusweep/internal/benchmark"
	"cusweep/internal/cumask"
	"cusweep/internal/topology"
)

type recordingInvoker struct {
	calls   []*benchmark.Config
	failAt  int
	failErr error

	// cancel, if set, is called after the first invocation; used to
	// exercise the between-step checkpoint.
	cancel context.CancelFunc
}

func (r *recordingInvoker) Invoke(_ context.Context, cfg *benchmark.Config) error {
	r.calls = append(r.calls, cfg)
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.failAt > 0 && len(r.calls) == r.failAt {
		return r.failErr
	}
	return nil
}

func testTopology(masks ...uint64) *topology.GPUTopology {
	gpcs := make([]topology.GPC, len(masks))
	for i, m := range masks {
		gpcs[i] = topology.GPC{ID: i, TPCMask: m}
	}
	return &topology.GPUTopology{Device: 0, Name: "test-gpu", GPCs: gpcs}
}

func staticTopology(masks ...uint64) TopologyFunc {
	return func(device int) (*topology.GPUTopology, error) {
		return testTopology(masks...), nil
	}
}

func TestSweepOrdering(t *testing.T) {
	invoker := &recordingInvoker{}
	orch := &Orchestrator{Runner: invoker}

	req := &Request{StartCount: 2, TotalCount: 5, Mode: cumask.ModeContiguous}
	require.NoError(t, orch.Run(context.Background(), req))

	// Loop values 2,3,4 test 3,4,5 active units, in that order.
	require.Len(t, invoker.calls, 3)
	for i, want := range []string{"3", "4", "5"} {
		assert.Equal(t, want, invoker.calls[i].Benchmarks[0].Label, "step %d", i+1)
	}

	mask, err := cumask.ParseHex(invoker.calls[0].Benchmarks[0].SMMask)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b111), mask.EnabledBits())
}

func TestSweepOffByOne(t *testing.T) {
	invoker := &recordingInvoker{}
	orch := &Orchestrator{Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 1, Mode: cumask.ModeContiguous}
	require.NoError(t, orch.Run(context.Background(), req))

	require.Len(t, invoker.calls, 1)
	assert.Equal(t, "1", invoker.calls[0].Benchmarks[0].Label)
}

func TestEndToEndContiguous(t *testing.T) {
	invoker := &recordingInvoker{}
	orch := &Orchestrator{Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 4, Mode: cumask.ModeContiguous}
	require.NoError(t, orch.Run(context.Background(), req))
	require.Len(t, invoker.calls, 4)

	first, err := cumask.ParseHex(invoker.calls[0].Benchmarks[0].SMMask)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1), first.EnabledBits())

	last, err := cumask.ParseHex(invoker.calls[3].Benchmarks[0].SMMask)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1111), last.EnabledBits())
}

func TestStripedFetchesFreshTopologyPerStep(t *testing.T) {
	topoCalls := 0
	topoFn := func(device int) (*topology.GPUTopology, error) {
		topoCalls++
		return testTopology(0xF, 0xF0), nil
	}

	invoker := &recordingInvoker{}
	orch := &Orchestrator{Topology: topoFn, Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 6, Mode: cumask.ModeStriped}
	require.NoError(t, orch.Run(context.Background(), req))

	require.Len(t, invoker.calls, 6)
	assert.Equal(t, 6, topoCalls)

	// Step 2 (two active units) stripes one TPC per GPC. If consumed
	// state leaked across steps these bits would drift upward.
	second, err := cumask.ParseHex(invoker.calls[1].Benchmarks[0].SMMask)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b10001), second.EnabledBits())

	assert.Equal(t, "cu_mask_striped_"+second.HexString()+".json", invoker.calls[1].Benchmarks[0].LogName)
}

func TestStripedDeterministicAcrossRuns(t *testing.T) {
	run := func() []string {
		invoker := &recordingInvoker{}
		orch := &Orchestrator{Topology: staticTopology(0x7, 0x38, 0x1C0), Runner: invoker}
		req := &Request{StartCount: 0, TotalCount: 9, Mode: cumask.ModeStriped}
		require.NoError(t, orch.Run(context.Background(), req))

		masks := make([]string, 0, len(invoker.calls))
		for _, cfg := range invoker.calls {
			masks = append(masks, cfg.Benchmarks[0].SMMask)
		}
		return masks
	}

	assert.Equal(t, run(), run())
}

func TestTopologyFailureAborts(t *testing.T) {
	topoCalls := 0
	topoFn := func(device int) (*topology.GPUTopology, error) {
		topoCalls++
		if topoCalls == 2 {
			return nil, fmt.Errorf("%w: nvdebug went away", topology.ErrTopologyUnavailable)
		}
		return testTopology(0xF, 0xF0), nil
	}

	invoker := &recordingInvoker{}
	orch := &Orchestrator{Topology: topoFn, Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 4, Mode: cumask.ModeStriped}
	err := orch.Run(context.Background(), req)

	assert.ErrorIs(t, err, topology.ErrTopologyUnavailable)
	assert.Len(t, invoker.calls, 1)
}

func TestInsufficientUnitsIssuesNoInvocation(t *testing.T) {
	// Groups sum to 8 set bits; the step asking for 10 must fail before
	// the runner is ever started.
	invoker := &recordingInvoker{}
	orch := &Orchestrator{Topology: staticTopology(0xF, 0xF0), Runner: invoker}

	req := &Request{StartCount: 9, TotalCount: 10, Mode: cumask.ModeStriped}
	err := orch.Run(context.Background(), req)

	assert.ErrorIs(t, err, cumask.ErrInsufficientUnits)
	assert.Empty(t, invoker.calls)
}

func TestRunnerFailureAborts(t *testing.T) {
	failure := errors.New("runner blew up")
	invoker := &recordingInvoker{failAt: 2, failErr: failure}
	orch := &Orchestrator{Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 4, Device: 1, Mode: cumask.ModeContiguous}
	err := orch.Run(context.Background(), req)

	assert.ErrorIs(t, err, failure)
	assert.Len(t, invoker.calls, 2)
	// Enough context to resume with -start_count.
	assert.Contains(t, err.Error(), "2 active units")
	assert.Contains(t, err.Error(), "device 1")
}

func TestInvalidRange(t *testing.T) {
	orch := &Orchestrator{Runner: &recordingInvoker{}}

	err := orch.Run(context.Background(), &Request{StartCount: 5, TotalCount: 5})
	assert.ErrorIs(t, err, cumask.ErrInvalidRange)

	err = orch.Run(context.Background(), &Request{StartCount: -1, TotalCount: 4})
	assert.ErrorIs(t, err, cumask.ErrInvalidRange)

	err = orch.Run(context.Background(), nil)
	assert.ErrorIs(t, err, cumask.ErrInvalidRange)
}

func TestStripedWithoutTopologySource(t *testing.T) {
	orch := &Orchestrator{Runner: &recordingInvoker{}}
	err := orch.Run(context.Background(), &Request{StartCount: 0, TotalCount: 4, Mode: cumask.ModeStriped})
	assert.ErrorIs(t, err, topology.ErrTopologyUnavailable)
}

func TestCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	invoker := &recordingInvoker{cancel: cancel}
	orch := &Orchestrator{Runner: invoker}

	req := &Request{StartCount: 0, TotalCount: 4, Mode: cumask.ModeContiguous}
	err := orch.Run(ctx, req)

	// The in-flight step finished; the next one never started.
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, invoker.calls, 1)
}

func TestOnStepReporting(t *testing.T) {
	var steps []Step
	invoker := &recordingInvoker{}
	orch := &Orchestrator{
		Runner: invoker,
		OnStep: func(s Step) { steps = append(steps, s) },
	}

	req := &Request{StartCount: 2, TotalCount: 5, Mode: cumask.ModeContiguous}
	require.NoError(t, orch.Run(context.Background(), req))

	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Index)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, i+3, s.ActiveUnits)
		assert.Equal(t, s.Mask.HexString(), s.Config.Benchmarks[0].SMMask)
	}
}
