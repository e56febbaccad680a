package runtime

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"smcgateway/pkg/runtime/constant"
)

var (
	ErrNotObject = fmt.Errorf("object does not implement the Object interfaces")
)

type LabeledCloser struct {
	Label  string
	Closer func(context.Context) error
}

// Broker drives one bus device: periodic collection of its variables and
// delivery of write actions.
type Broker interface {
	Collect(ctx context.Context)
	DeliverAction(ctx context.Context, actions map[string]interface{}) error
	Destroy(ctx context.Context)
}

type VariableValue interface {
	SetValue(value interface{})
	GetValue() interface{}
	GetVariableName() string
	SetVariableName(name string)
	GetVariableAccessMode() constant.AccessMode
}

type Object interface {
	GetName() string
	SetName(string)
	GetID() string
	SetID(string)
	GetVersion() string
	SetVersion(string)
	GetModTime() time.Time
	SetModTime(time.Time)
}

type Device interface {
	Object
	GetDeviceCode() string
	SetDeviceCode(string)
	GetDeviceType() string
	SetDeviceType(string)
	GetDeviceModel() string
	SetDeviceModel(string)
	GetCollectStatus() string
	SetCollectStatus(string)
	GetTopic() string
	SetTopic(string)
	IndexDevice()
	GetVariable(name string) (VariableValue, bool)
	GetVariablesMap() map[string]VariableValue
	DeepCopyObject() Device
}

type ObjectMetaAccessor interface {
	GetObjectMeta() Object
}

type ResponseModel struct {
	Devices interface{} `json:"devices,omitempty"`
}

type ParseVariableResult struct {
	VariableSlice []VariableValue
	Err           []error
}

type ObjectMeta struct {
	Name    string    `json:"name"`
	ID      string    `json:"id"`
	Version string    `json:"eTag"`
	ModTime time.Time `json:"modTime"`
}

func (meta *ObjectMeta) GetName() string              { return meta.Name }
func (meta *ObjectMeta) SetName(name string)          { meta.Name = name }
func (meta *ObjectMeta) GetID() string                { return meta.ID }
func (meta *ObjectMeta) SetID(id string)              { meta.ID = id }
func (meta *ObjectMeta) GetVersion() string           { return meta.Version }
func (meta *ObjectMeta) SetVersion(version string)    { meta.Version = version }
func (meta *ObjectMeta) GetModTime() time.Time        { return meta.ModTime }
func (meta *ObjectMeta) SetModTime(modTime time.Time) { meta.ModTime = modTime }

type DeviceMeta struct {
	ObjectMeta
	DeviceCode    string `json:"deviceCode"`
	DeviceType    string `json:"deviceType"`
	DeviceModel   string `json:"deviceModel"`
	CollectStatus string `json:"collectStatus"`
	Topic         string `json:"topic,omitempty"`
}

func (d *DeviceMeta) GetDeviceCode() string     { return d.DeviceCode }
func (d *DeviceMeta) SetDeviceCode(s string)    { d.DeviceCode = s }
func (d *DeviceMeta) GetDeviceType() string     { return d.DeviceType }
func (d *DeviceMeta) SetDeviceType(s string)    { d.DeviceType = s }
func (d *DeviceMeta) GetDeviceModel() string    { return d.DeviceModel }
func (d *DeviceMeta) SetDeviceModel(s string)   { d.DeviceModel = s }
func (d *DeviceMeta) GetCollectStatus() string  { return d.CollectStatus }
func (d *DeviceMeta) SetCollectStatus(s string) { d.CollectStatus = s }
func (d *DeviceMeta) GetTopic() string          { return d.Topic }
func (d *DeviceMeta) SetTopic(topic string)     { d.Topic = topic }
func (d *DeviceMeta) IndexDevice()              {}
func (d *DeviceMeta) GetVariable(string) (VariableValue, bool) {
	return nil, false
}
func (d *DeviceMeta) GetVariablesMap() map[string]VariableValue { return nil }
func (d *DeviceMeta) DeepCopyObject() Device {
	meta := *d
	return &meta
}

// MQTT publish payload shapes.
type PublishData struct {
	Payload Payload `json:"payload"`
}

type Payload struct {
	Data []TimeSeriesData `json:"data"`
}

type TimeSeriesData struct {
	Timestamp string      `json:"timestamp"`
	Values    []PointData `json:"values"`
}

type PointData struct {
	DataPointId string      `json:"dataPointId"`
	Value       interface{} `json:"value"`
}

type CreateOptions struct {
	Query url.Values
}

type GetOptions struct {
	Version string
	Query   url.Values
}

type ListOptions struct {
	Filter map[string]interface{}
	Query  url.Values
}

type UpdateOptions struct {
	Version string
	Query   url.Values
}

type DeleteOptions struct {
	Version string
	Query   url.Values
}

func Accessor(obj interface{}) (Object, error) {
	switch t := obj.(type) {
	case Object:
		return t, nil
	case ObjectMetaAccessor:
		if m := t.GetObjectMeta(); m != nil {
			return m, nil
		}
		return nil, ErrNotObject
	default:
		return nil, ErrNotObject
	}
}

func AccessorDevice(obj interface{}) (Device, error) {
	switch t := obj.(type) {
	case Device:
		return t, nil
	default:
		return nil, ErrNotObject
	}
}
