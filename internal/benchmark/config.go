// Package benchmark defines the configuration payload the external
// runner reads from stdin and the result records it writes back out.
package benchmark

import (
	"strconv"

	"cusweep/internal/cumask"
)

const (
	sweepName  = "Compute Unit Count vs. Performance"
	pluginPath = "./bin/matrix_multiply.so"

	defaultIterations  = 100
	defaultMatrixWidth = 1024
	defaultBlockDim    = 32
)

// MatrixParams are the plugin-specific knobs of the matrix multiply
// workload.
type MatrixParams struct {
	MatrixWidth int  `json:"matrix_width"`
	SkipCopy    bool `json:"skip_copy"`
}

// Plugin is one benchmark entry. The sweep always emits exactly one.
type Plugin struct {
	Label          string       `json:"label"`
	LogName        string       `json:"log_name"`
	Filename       string       `json:"filename"`
	ThreadCount    [2]int       `json:"thread_count"`
	BlockCount     int          `json:"block_count"`
	SMMask         string       `json:"sm_mask"`
	DataSize       int          `json:"data_size"`
	AdditionalInfo MatrixParams `json:"additional_info"`
}

// Config is the full payload delivered to the runner. Field names are
// fixed by the runner's input format.
type Config struct {
	Name          string   `json:"name"`
	MaxIterations int      `json:"max_iterations"`
	MaxTime       int      `json:"max_time"`
	CUDADevice    int      `json:"cuda_device"`
	PinCPUs       bool     `json:"pin_cpus"`
	DoWarmup      bool     `json:"do_warmup"`
	Benchmarks    []Plugin `json:"benchmarks"`
}

// New builds the per-step configuration: a 1024x1024 matrix multiply
// with 32x32 thread blocks where only the CU mask varies. The label is
// the enabled-unit count recomputed from the mask itself, so the output
// files cross-check the allocator. The log name encodes the mask and
// whether striping was in play.
func New(mask cumask.Mask, striped bool, device int) *Config {
	hexMask := mask.HexString()

	logName := "cu_mask_" + hexMask + ".json"
	name := sweepName
	if striped {
		logName = "cu_mask_striped_" + hexMask + ".json"
		name += " (striped)"
	}

	plugin := Plugin{
		Label:       strconv.Itoa(mask.EnabledCount()),
		LogName:     logName,
		Filename:    pluginPath,
		ThreadCount: [2]int{defaultBlockDim, defaultBlockDim},
		BlockCount:  1,
		SMMask:      hexMask,
		DataSize:    0,
		AdditionalInfo: MatrixParams{
			MatrixWidth: defaultMatrixWidth,
			SkipCopy:    true,
		},
	}

	return &Config{
		Name:          name,
		MaxIterations: defaultIterations,
		MaxTime:       0,
		CUDADevice:    device,
		PinCPUs:       true,
		DoWarmup:      true,
		Benchmarks:    []Plugin{plugin},
	}
}
