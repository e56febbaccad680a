package v1

// smc100
type SMC100Axis struct {
	Name                  string `json:"name" binding:"required,min=1,max=64,excludesall=\u002F\u005C"` // 轴名称
	Address               uint   `json:"address" binding:"number,gte=0,lte=31"`                         // 总线地址
	HomeIsHardwareDefined bool   `json:"homeIsHardwareDefined"`                                         // 硬件原点
}

type SMC100Device struct {
	DeviceMeta
	CollectorCycle uint           `json:"collectorCycle" binding:"required"` // 采集周期
	Address        *SerialAddress `json:"address" binding:"required"`        // 串口地址
	Axes           []*SMC100Axis  `json:"axes" binding:"required,dive"`      // 轴
}

type SerialAddress struct {
	Location string               `json:"location" binding:"required"` // 地址路径
	Option   *SerialAddressOption `json:"option"`                      // 串口参数
}

type SerialAddressOption struct {
	BaudRate int    `json:"baudRate,omitempty"` // 波特率
	DataBits int    `json:"dataBits,omitempty"` // 数据位
	Parity   string `json:"parity,omitempty"`   // 校验位
	StopBits string `json:"stopBits,omitempty"` // 停止位
}
