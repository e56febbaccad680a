package config

import (
	"smcgateway/pkg/device"
	"smcgateway/pkg/gateway"
)

type Config struct {
	DeviceMgr  *device.Manager
	GatewayMgr *gateway.Manager
	CertFile   string
	KeyFile    string
}
