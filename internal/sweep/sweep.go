// Package sweep drives a benchmark sweep: one CU mask and one runner
// invocation per active-unit count, strictly sequential.
package sweep

import (
	"context"
	"errors"
	"fmt"

	"cusweep/internal/benchmark"
	"cusweep/internal/cumask"
	"cusweep/internal/log"
	"cusweep/internal/topology"
)

var ErrNotConfigured = errors.New("sweep orchestrator misconfigured")

// Invoker runs one benchmark configuration to completion.
type Invoker interface {
	Invoke(ctx context.Context, cfg *benchmark.Config) error
}

// TopologyFunc returns a fresh, unconsumed topology descriptor for a
// device. Striped steps call it once each so no consumed-unit state can
// leak between steps.
type TopologyFunc func(device int) (*topology.GPUTopology, error)

// Request describes one whole sweep. Counts span [StartCount,
// TotalCount); StartCount above zero resumes an interrupted sweep.
type Request struct {
	StartCount int
	TotalCount int
	Device     int
	Mode       cumask.Mode
}

// Steps is how many runner invocations the sweep will issue.
func (r *Request) Steps() int {
	return r.TotalCount - r.StartCount
}

// Step is reported just before each runner invocation.
type Step struct {
	Index       int // 1-based position within this sweep
	Total       int
	ActiveUnits int
	Mask        cumask.Mask
	Config      *benchmark.Config
}

type Orchestrator struct {
	Topology TopologyFunc
	Runner   Invoker

	// OnStep, if set, is called before each invocation. Display hook
	// only; errors still abort through the return value of Run.
	OnStep func(Step)
}

// Run executes the sweep. Steps run one at a time in ascending order
// and the first failure aborts everything; recovery is re-running with
// a higher StartCount.
//
// Each loop value n tests n+1 active units, so the sweep covers enabled
// counts [StartCount+1, TotalCount]. The off-by-one is inherited from
// the original driver and result labeling depends on it; do not "fix"
// it here.
func (o *Orchestrator) Run(ctx context.Context, req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", cumask.ErrInvalidRange)
	}
	if req.StartCount < 0 || req.StartCount >= req.TotalCount {
		return fmt.Errorf("%w: start_count %d, cu_count %d", cumask.ErrInvalidRange, req.StartCount, req.TotalCount)
	}
	if o.Runner == nil {
		return fmt.Errorf("%w: no runner configured", ErrNotConfigured)
	}
	if req.Mode == cumask.ModeStriped && o.Topology == nil {
		return fmt.Errorf("%w: striped sweep without a topology source", topology.ErrTopologyUnavailable)
	}

	steps := req.Steps()
	for n := req.StartCount; n < req.TotalCount; n++ {
		// Between-step checkpoint; a step in flight is never cut short.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sweep interrupted before %d active units on device %d: %w", n+1, req.Device, err)
		}

		active := n + 1
		var topo *topology.GPUTopology
		if req.Mode == cumask.ModeStriped {
			fresh, err := o.Topology(req.Device)
			if err != nil {
				return fmt.Errorf("fetch topology for %d active units on device %d: %w", active, req.Device, err)
			}
			topo = fresh
		}

		mask, err := cumask.Allocate(active, req.TotalCount, req.Mode, topo)
		if err != nil {
			return fmt.Errorf("allocate mask for %d active units on device %d (%s): %w", active, req.Device, req.Mode, err)
		}

		cfg := benchmark.New(mask, req.Mode == cumask.ModeStriped, req.Device)
		step := Step{
			Index:       n - req.StartCount + 1,
			Total:       steps,
			ActiveUnits: active,
			Mask:        mask,
			Config:      cfg,
		}
		if o.OnStep != nil {
			o.OnStep(step)
		}

		log.Logger.Infow("starting benchmark step",
			"device", req.Device,
			"mode", string(req.Mode),
			"activeUnits", active,
			"mask", mask.HexString(),
			"step", step.Index,
			"steps", steps,
		)
		if err := o.Runner.Invoke(ctx, cfg); err != nil {
			return fmt.Errorf("run benchmark for %d active units on device %d (%s): %w", active, req.Device, req.Mode, err)
		}
		log.Logger.Infow("benchmark step finished",
			"device", req.Device,
			"activeUnits", active,
			"logName", cfg.Benchmarks[0].LogName,
		)
	}

	return nil
}
