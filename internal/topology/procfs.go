package topology

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcfsBasePath is where the nvdebug kernel module exposes per-GPU
// partitioning info (num_gpcs, gpc<i>_tpc_mask). Overridable for tests.
var ProcfsBasePath = "/proc"

func gpuPath(device int, element string) string {
	return filepath.Join(ProcfsBasePath, "gpu"+strconv.Itoa(device), element)
}

// ReadUintFile reads a single unsigned value from a procfs file.
// nvdebug writes masks with a 0x prefix and counts in plain decimal,
// so the base is auto-detected.
func ReadUintFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, errors.New("empty file")
	}
	parsed, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// ReadGPCCount returns how many GPCs nvdebug reports for the device.
func ReadGPCCount(device int) (int, error) {
	value, err := ReadUintFile(gpuPath(device, "num_gpcs"))
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// ReadGPCMask returns the TPC membership mask of one GPC.
func ReadGPCMask(device int, gpc int) (uint64, error) {
	return ReadUintFile(gpuPath(device, fmt.Sprintf("gpc%d_tpc_mask", gpc)))
}

// FromProcfs builds the topology descriptor from the nvdebug procfs
// interface alone. The device name stays empty; Detect fills it in
// from NVML.
func FromProcfs(device int) (*GPUTopology, error) {
	base := filepath.Join(ProcfsBasePath, "gpu"+strconv.Itoa(device))
	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s not found (is the nvdebug module loaded?)", ErrTopologyUnavailable, base)
		}
		if os.IsPermission(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTopologyUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrTopologyUnavailable, base)
	}

	count, err := ReadGPCCount(device)
	if err != nil {
		return nil, fmt.Errorf("%w: reading GPC count: %v", ErrTopologyUnavailable, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: device %d reports no GPCs", ErrTopologyUnavailable, device)
	}

	gpcs := make([]GPC, 0, count)
	for i := 0; i < count; i++ {
		mask, err := ReadGPCMask(device, i)
		if err != nil {
			return nil, fmt.Errorf("%w: reading GPC %d mask: %v", ErrTopologyUnavailable, i, err)
		}
		gpcs = append(gpcs, GPC{ID: i, TPCMask: mask})
	}

	topo := &GPUTopology{Device: device, GPCs: gpcs}
	if topo.TotalTPCs() == 0 {
		return nil, fmt.Errorf("%w: device %d reports empty TPC masks", ErrTopologyUnavailable, device)
	}
	return topo, nil
}
