package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"cusweep/cmd"
	"cusweep/internal/cumask"
	"cusweep/internal/log"
	"cusweep/internal/runner"
	"cusweep/internal/sweep"
	"cusweep/internal/topology"
	"cusweep/internal/ui"
)

func main() {
	opts := cmd.ParseFlags()

	var topo *topology.GPUTopology
	if opts.NeedsTopology() {
		detected, err := topology.Detect(opts.Device)
		if err != nil {
			// Contiguous CLI sweeps with an explicit cu_count can run
			// without topology access; everything else needs it.
			if opts.ShowTopology || opts.Stripe || !opts.Run {
				exitWithError(err)
			}
			log.Logger.Warnw("GPU topology unavailable, continuing with explicit cu_count", "error", err)
		} else {
			topo = detected
		}
	}

	if err := cmd.Validate(opts, topo); err != nil {
		exitWithError(err)
	}

	if opts.ShowTopology {
		if opts.JSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(topo); err != nil {
				exitWithError(err)
			}
			return
		}
		ui.PrintTopology(topo)
		return
	}

	if opts.Run {
		if err := runCLIMode(opts, topo); err != nil {
			exitWithError(err)
		}
		return
	}

	if err := ui.Run(topo, opts.Runner); err != nil {
		exitWithError(err)
	}
}

func runCLIMode(opts *cmd.Options, topo *topology.GPUTopology) error {
	total := opts.CUCount
	if total == 0 {
		total = topo.TotalTPCs()
		log.Logger.Infow("auto-detected TPC count", "device", opts.Device, "cuCount", total)
	}

	mode := cumask.ModeContiguous
	if opts.Stripe {
		mode = cumask.ModeStriped
	}

	req := &sweep.Request{
		StartCount: opts.StartCount,
		TotalCount: total,
		Device:     opts.Device,
		Mode:       mode,
	}
	orch := &sweep.Orchestrator{
		Topology: topology.Detect,
		Runner:   &runner.Client{Path: opts.Runner, DryRun: opts.DryRun},
		OnStep: func(s sweep.Step) {
			if opts.DryRun {
				ui.PrintDryRun(s)
				return
			}
			ui.PrintStep(s)
		},
	}

	// Ctrl-C stops the sweep at the next between-step checkpoint; the
	// step in flight always finishes first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := orch.Run(ctx, req); err != nil {
		return err
	}
	if !opts.DryRun {
		ui.PrintSweepDone(req)
	}
	return nil
}

func exitWithError(err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, cmd.ErrInvalidArguments):
		ui.PrintError(err)
		os.Exit(2)
	case errors.Is(err, topology.ErrTopologyUnavailable):
		ui.PrintError(fmt.Errorf("%v\nIs the GPU driver installed and the nvdebug module loaded?", err))
		os.Exit(3)
	case errors.Is(err, cumask.ErrInsufficientUnits) || errors.Is(err, cumask.ErrInvalidRange):
		ui.PrintError(err)
		os.Exit(4)
	case errors.Is(err, os.ErrPermission):
		ui.PrintError(errors.New("Permission denied. Try running with sudo."))
		os.Exit(5)
	default:
		ui.PrintError(err)
		os.Exit(1)
	}
}
