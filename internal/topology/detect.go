package topology

import "errors"

var ErrTopologyUnavailable = errors.New("topology unavailable")

// Detect queries the full GPC/TPC topology of a device. The device must
// be visible to NVML and the nvdebug procfs interface must be present;
// either one missing makes striped sweeps (and TPC auto-detection)
// impossible, reported as ErrTopologyUnavailable.
func Detect(device int) (*GPUTopology, error) {
	name, err := deviceName(device)
	if err != nil {
		return nil, err
	}

	topo, err := FromProcfs(device)
	if err != nil {
		return nil, err
	}
	topo.Name = name
	return topo, nil
}
