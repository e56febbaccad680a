package v1

var DeviceTypeMap = map[string]func() DeviceType{
	"smc100": func() DeviceType { return &SMC100Device{} },
}
