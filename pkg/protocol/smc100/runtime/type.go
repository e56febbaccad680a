package runtime

import (
	"fmt"

	"smcgateway/pkg/runtime"
	"smcgateway/pkg/runtime/constant"
)

var _ runtime.Device = (*SMC100Device)(nil)

type Variable struct {
	DataType     constant.DataType   `json:"dataType"`               // float64、bool、string
	Name         string              `json:"name"`                   // 变量名称 <axis>.<suffix>
	AccessMode   constant.AccessMode `json:"accessMode"`             // 读写属性
	DefaultValue interface{}         `json:"defaultValue,omitempty"` // 默认值
	Value        interface{}         `json:"value,omitempty"`        // 值
}

func (v *Variable) SetValue(value interface{}) {
	v.Value = value
}

func (v *Variable) GetValue() interface{} {
	return v.Value
}

func (v *Variable) GetVariableName() string {
	return v.Name
}

func (v *Variable) SetVariableName(name string) {
	v.Name = name
}

func (v *Variable) GetVariableAccessMode() constant.AccessMode {
	return v.AccessMode
}

// Axis is one addressable controller on the daisy chain. Address 0 is the
// link owner itself (no command prefix).
type Axis struct {
	Name                  string `json:"name"`
	Address               uint   `json:"address"`
	HomeIsHardwareDefined bool   `json:"homeIsHardwareDefined"`
}

type SMC100Device struct {
	runtime.DeviceMeta
	CollectorCycle uint                 `json:"collectorCycle"` // 采集周期
	Address        *Address             `json:"address"`        // 串口地址
	Axes           []*Axis              `json:"axes"`           // 轴
	Variables      []*Variable          `json:"variables,omitempty"`
	VariablesMap   map[string]*Variable `json:"-"`
}

// IndexDevice materializes the per-axis variable set and the lookup map.
// Collection fills position/velocity/state/enabled; home and stop exist only
// as writable action verbs.
func (d *SMC100Device) IndexDevice() {
	if len(d.Variables) == 0 {
		for _, axis := range d.Axes {
			d.Variables = append(d.Variables,
				&Variable{Name: axisVariable(axis.Name, VariablePosition), DataType: constant.FLOAT64, AccessMode: constant.AccessModeReadWrite},
				&Variable{Name: axisVariable(axis.Name, VariableVelocity), DataType: constant.FLOAT64, AccessMode: constant.AccessModeReadOnly},
				&Variable{Name: axisVariable(axis.Name, VariableState), DataType: constant.STRING, AccessMode: constant.AccessModeReadWrite},
				&Variable{Name: axisVariable(axis.Name, VariableEnabled), DataType: constant.BOOL, AccessMode: constant.AccessModeReadWrite},
				&Variable{Name: axisVariable(axis.Name, VariableHome), DataType: constant.BOOL, AccessMode: constant.AccessModeReadWrite},
				&Variable{Name: axisVariable(axis.Name, VariableStop), DataType: constant.BOOL, AccessMode: constant.AccessModeReadWrite},
			)
		}
	}
	d.VariablesMap = make(map[string]*Variable, len(d.Variables))
	for _, variable := range d.Variables {
		d.VariablesMap[variable.Name] = variable
	}
}

func (d *SMC100Device) GetVariablesMap() map[string]runtime.VariableValue {
	vm := make(map[string]runtime.VariableValue, len(d.VariablesMap))
	for k, variable := range d.VariablesMap {
		vm[k] = variable
	}
	return vm
}

func (d *SMC100Device) GetVariable(name string) (runtime.VariableValue, bool) {
	v, ok := d.VariablesMap[name]
	return v, ok
}

func (d *SMC100Device) DeepCopyObject() runtime.Device {
	out := &SMC100Device{
		DeviceMeta:     d.DeviceMeta,
		CollectorCycle: d.CollectorCycle,
	}
	if d.Address != nil {
		out.Address = &Address{Location: d.Address.Location}
		if d.Address.Option != nil {
			option := *d.Address.Option
			out.Address.Option = &option
		}
	}
	for _, axis := range d.Axes {
		a := *axis
		out.Axes = append(out.Axes, &a)
	}
	for _, variable := range d.Variables {
		v := *variable
		out.Variables = append(out.Variables, &v)
	}
	out.IndexDevice()
	return out
}

type Address struct {
	Location string  `json:"location"` // 地址路径
	Option   *Option `json:"option"`   // 串口参数
}

type Option struct {
	BaudRate int              `json:"baudRate,omitempty"` // 波特率
	DataBits int              `json:"dataBits,omitempty"` // 数据位
	Parity   runtime.Parity   `json:"parity,omitempty"`   // 校验位
	StopBits runtime.StopBits `json:"stopBits,omitempty"` // 停止位
}

func axisVariable(axis, suffix string) string {
	return fmt.Sprintf("%s.%s", axis, suffix)
}

// SplitVariable cuts a variable name back into its axis name and suffix.
func SplitVariable(name string) (axis string, suffix string, ok bool) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:], i > 0 && i < len(name)-1
		}
	}
	return "", "", false
}
