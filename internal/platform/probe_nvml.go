//go:build linux && cgo

package platform

import (
	"codeberg.org/mutker/perfgov/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const bytesPerMiB = 1 << 20

const (
	ErrNVMLInit        = errors.ErrorCode("platform_nvml_init_failed")
	ErrNVMLDeviceCount = errors.ErrorCode("platform_nvml_device_count_failed")
	ErrNVMLDevice      = errors.ErrorCode("platform_nvml_device_failed")
)

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

func probeGPU() (gpu *GPU, err error) {
	errFactory := errors.New()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrNVMLInit, nvmlError{ret})
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrNVMLDeviceCount, nvmlError{ret})
	}
	if count == 0 {
		return nil, nil
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrNVMLDevice, nvmlError{ret})
	}

	name, ret := device.GetName()
	if ret != nvml.SUCCESS {
		return nil, errFactory.Wrap(ErrNVMLDevice, nvmlError{ret})
	}

	gpu = &GPU{Name: name}
	if mem, ret := device.GetMemoryInfo(); ret == nvml.SUCCESS {
		gpu.MemoryMiB = mem.Total / bytesPerMiB
	}

	return gpu, nil
}
