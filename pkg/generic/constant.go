package generic

import (
	"smcgateway/pkg/protocol/smc100"
	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"smcgateway/pkg/runtime"
	v1 "smcgateway/pkg/v1"
)

var DeviceTypeMap = map[string]func() v1.DeviceType{
	"smc100": func() v1.DeviceType { return &v1.SMC100Device{} },
}

var DeviceTypeObjectMap = map[string]runtime.Device{
	"smc100": &smcruntime.SMC100Device{},
}

type NewBroker func(object runtime.Device) (runtime.Broker, chan *runtime.ParseVariableResult, error)

var DeviceTypeBrokerMap = map[string]NewBroker{
	"smc100": smc100.NewBroker,
}
