package device

import (
	"smcgateway/pkg/runtime"
	v1 "smcgateway/pkg/v1"
)

// DeviceManager converts between the v1 API types and the stored runtime
// device of one protocol. Implementations validate protocol-specific
// constraints, e.g. axis address uniqueness on a serial chain.
type DeviceManager interface {
	CreateDevice(deviceType v1.DeviceType) (runtime.Device, error)
	DeleteDevice(device runtime.Device) (runtime.Device, error)
	UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error
	UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error)
}
