package smc100

import (
	"strconv"
	"time"

	"k8s.io/klog/v2"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"smcgateway/pkg/runtime"
	"smcgateway/pkg/runtime/constant"
	"smcgateway/pkg/utils/randutil"
	"smcgateway/pkg/utils/uuidutil"
	v1 "smcgateway/pkg/v1"
)

// Serial defaults for an SMC100 RS-232-C port.
const (
	defaultBaudRate = 56700
	defaultDataBits = 8
)

type SMC100DeviceManager struct {
}

func (m *SMC100DeviceManager) CreateDevice(deviceType v1.DeviceType) (runtime.Device, error) {
	smcDevice, ok := deviceType.(*v1.SMC100Device)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not smc100")
		return nil, constant.ErrDeviceType
	}
	if err := validateAxes(smcDevice.Axes); err != nil {
		return nil, err
	}

	d := &smcruntime.SMC100Device{
		DeviceMeta: runtime.DeviceMeta{
			Topic: smcDevice.Topic,
			ObjectMeta: runtime.ObjectMeta{
				Name:    smcDevice.Name,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
			DeviceCode:    smcDevice.DeviceCode,
			DeviceType:    smcDevice.DeviceType,
			DeviceModel:   smcDevice.DeviceModel,
			CollectStatus: runtime.CollectStatusToString[runtime.Stopped],
		},
		CollectorCycle: smcDevice.CollectorCycle,
		Address:        toAddress(smcDevice.Address),
	}
	for _, axis := range smcDevice.Axes {
		d.Axes = append(d.Axes, &smcruntime.Axis{
			Name:                  axis.Name,
			Address:               axis.Address,
			HomeIsHardwareDefined: axis.HomeIsHardwareDefined,
		})
	}
	d.IndexDevice()
	return d, nil
}

func (m *SMC100DeviceManager) DeleteDevice(device runtime.Device) (runtime.Device, error) {
	return &smcruntime.SMC100Device{DeviceMeta: runtime.DeviceMeta{
		ObjectMeta:  runtime.ObjectMeta{ID: device.GetID(), Version: device.GetVersion()},
		DeviceType:  device.GetDeviceType(),
		DeviceCode:  device.GetDeviceCode(),
		DeviceModel: device.GetDeviceModel(),
	}}, nil
}

func (m *SMC100DeviceManager) UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error {
	smcDevice, ok := deviceType.(*v1.SMC100Device)
	if !ok {
		return constant.ErrDeviceType
	}
	return validateAxes(smcDevice.Axes)
}

func (m *SMC100DeviceManager) UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error) {
	smcDevice, ok := deviceType.(*v1.SMC100Device)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not smc100")
		return nil, constant.ErrDeviceType
	}
	if err := validateAxes(smcDevice.Axes); err != nil {
		return nil, err
	}

	copyDevice, _ := device.(*smcruntime.SMC100Device)
	copyDevice.DeviceMeta.Topic = smcDevice.Topic
	copyDevice.DeviceMeta.ObjectMeta.Name = smcDevice.Name
	copyDevice.DeviceMeta.DeviceCode = smcDevice.DeviceCode
	copyDevice.DeviceMeta.DeviceType = smcDevice.DeviceType
	copyDevice.DeviceMeta.DeviceModel = smcDevice.DeviceModel

	copyDevice.CollectorCycle = smcDevice.CollectorCycle
	copyDevice.Address = toAddress(smcDevice.Address)

	copyDevice.Axes = copyDevice.Axes[:0]
	for _, axis := range smcDevice.Axes {
		copyDevice.Axes = append(copyDevice.Axes, &smcruntime.Axis{
			Name:                  axis.Name,
			Address:               axis.Address,
			HomeIsHardwareDefined: axis.HomeIsHardwareDefined,
		})
	}

	// The axis set defines the variable set; rebuild it but keep last values
	// for variables that survive the update.
	values := make(map[string]interface{}, len(copyDevice.Variables))
	for _, variable := range copyDevice.Variables {
		values[variable.Name] = variable.Value
	}
	copyDevice.Variables = nil
	copyDevice.IndexDevice()
	for _, variable := range copyDevice.Variables {
		if value, ok := values[variable.Name]; ok {
			variable.Value = value
		}
	}

	return copyDevice, nil
}

func toAddress(address *v1.SerialAddress) *smcruntime.Address {
	out := &smcruntime.Address{
		Location: address.Location,
		Option: &smcruntime.Option{
			BaudRate: defaultBaudRate,
			DataBits: defaultDataBits,
			Parity:   runtime.NoParity,
			StopBits: runtime.OneStopBit,
		},
	}
	option := address.Option
	if option == nil {
		return out
	}
	if option.BaudRate != 0 {
		out.Option.BaudRate = option.BaudRate
	}
	if option.DataBits != 0 {
		out.Option.DataBits = option.DataBits
	}
	if parity, ok := runtime.StringToParity[option.Parity]; ok {
		out.Option.Parity = parity
	}
	if stopBits, ok := runtime.StringToStopBits[option.StopBits]; ok {
		out.Option.StopBits = stopBits
	}
	return out
}

func validateAxes(axes []*v1.SMC100Axis) error {
	names := make(map[string]struct{}, len(axes))
	addresses := make(map[uint]struct{}, len(axes))
	for _, axis := range axes {
		if axis.Address > smcruntime.MaxAxisAddress {
			return smcruntime.ErrAxisAddressRange
		}
		if _, ok := names[axis.Name]; ok {
			return smcruntime.ErrAxisNameConflict
		}
		if _, ok := addresses[axis.Address]; ok {
			return smcruntime.ErrAxisAddressConflict
		}
		names[axis.Name] = struct{}{}
		addresses[axis.Address] = struct{}{}
	}
	return nil
}
