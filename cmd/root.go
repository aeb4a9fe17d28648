package cmd

import (
	"errors"
	"flag"
	"fmt"

	"cusweep/internal/topology"
)

type Options struct {
	ShowTopology bool
	CUCount      int
	StartCount   int
	Stripe       bool
	Device       int
	Runner       string
	Run          bool
	DryRun       bool
	JSON         bool
}

var ErrInvalidArguments = errors.New("invalid arguments")

func ParseFlags() *Options {
	opts := &Options{}
	flag.BoolVar(&opts.ShowTopology, "topology", false, "Show GPU GPC/TPC topology and exit")
	flag.IntVar(&opts.CUCount, "cu_count", 0, "Total number of TPCs on the GPU (0 = auto-detect)")
	flag.IntVar(&opts.StartCount, "start_count", 0, "Active-unit count to resume an interrupted sweep from")
	flag.BoolVar(&opts.Stripe, "stripe", false, "Stripe TPC assignment across GPCs instead of filling contiguously")
	flag.IntVar(&opts.Device, "device", 0, "CUDA device index to sweep")
	flag.StringVar(&opts.Runner, "runner", "./bin/runner", "Path to the benchmark runner executable")
	flag.BoolVar(&opts.Run, "run", false, "Run the sweep in CLI mode (non-interactive)")
	flag.BoolVar(&opts.DryRun, "dry-run", false, "Print step configurations without launching the runner")
	flag.BoolVar(&opts.JSON, "json", false, "Output in JSON format (with -topology)")
	flag.Parse()
	return opts
}

// NeedsTopology reports whether the invocation cannot proceed without a
// topology descriptor: printing it, striping over it, auto-detecting
// the TPC count, or entering the interactive wizard.
func (o *Options) NeedsTopology() bool {
	return o.ShowTopology || o.Stripe || o.CUCount == 0 || !o.Run
}

func Validate(opts *Options, topo *topology.GPUTopology) error {
	if opts == nil {
		return fmt.Errorf("%w: options are required", ErrInvalidArguments)
	}

	if opts.JSON && !opts.ShowTopology {
		return fmt.Errorf("%w: -json requires -topology", ErrInvalidArguments)
	}
	if opts.DryRun && !opts.Run {
		return fmt.Errorf("%w: -dry-run requires -run", ErrInvalidArguments)
	}
	if opts.Device < 0 {
		return fmt.Errorf("%w: device index must not be negative", ErrInvalidArguments)
	}

	if opts.ShowTopology {
		if opts.Run {
			return fmt.Errorf("%w: -topology cannot be used with -run", ErrInvalidArguments)
		}
		return nil
	}

	if opts.Run {
		if opts.CUCount < 0 {
			return fmt.Errorf("%w: cu_count must be positive", ErrInvalidArguments)
		}
		if opts.StartCount < 0 {
			return fmt.Errorf("%w: start_count must not be negative", ErrInvalidArguments)
		}

		total := opts.CUCount
		if total == 0 {
			if topo == nil {
				return fmt.Errorf("%w: -cu_count is required when the GPU topology is unavailable", ErrInvalidArguments)
			}
			total = topo.TotalTPCs()
		}
		if topo != nil && total > topo.TotalTPCs() {
			return fmt.Errorf("%w: cu_count %d exceeds the %d available TPCs",
				ErrInvalidArguments, total, topo.TotalTPCs())
		}
		if opts.StartCount >= total {
			return fmt.Errorf("%w: start_count %d leaves nothing to sweep below cu_count %d",
				ErrInvalidArguments, opts.StartCount, total)
		}
		return nil
	}

	if opts.CUCount != 0 || opts.StartCount != 0 || opts.Stripe || opts.DryRun {
		return fmt.Errorf("%w: use -run for CLI mode, or run without flags for interactive mode", ErrInvalidArguments)
	}

	return nil
}
