package topology

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// deviceName validates the device index against NVML and returns the
// product name. NVML problems all collapse into ErrTopologyUnavailable:
// without a working driver there is nothing to sweep.
func deviceName(device int) (string, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return "", fmt.Errorf("%w: NVML init failed: %s", ErrTopologyUnavailable, nvml.ErrorString(ret))
	}
	defer func() {
		_ = nvml.Shutdown()
	}()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return "", fmt.Errorf("%w: NVML device count failed: %s", ErrTopologyUnavailable, nvml.ErrorString(ret))
	}
	if device < 0 || device >= count {
		return "", fmt.Errorf("%w: device %d not present (%d devices)", ErrTopologyUnavailable, device, count)
	}

	dev, ret := nvml.DeviceGetHandleByIndex(device)
	if ret != nvml.SUCCESS {
		return "", fmt.Errorf("%w: device %d handle failed: %s", ErrTopologyUnavailable, device, nvml.ErrorString(ret))
	}

	name, ret := dev.GetName()
	if ret != nvml.SUCCESS {
		return "", fmt.Errorf("%w: device %d name failed: %s", ErrTopologyUnavailable, device, nvml.ErrorString(ret))
	}
	return name, nil
}
