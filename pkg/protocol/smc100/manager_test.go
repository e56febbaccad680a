package smc100

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"smcgateway/pkg/runtime"
	"smcgateway/pkg/runtime/constant"
	v1 "smcgateway/pkg/v1"
)

func testV1Device(axes ...*v1.SMC100Axis) *v1.SMC100Device {
	return &v1.SMC100Device{
		DeviceMeta: v1.DeviceMeta{
			PublishMeta: v1.PublishMeta{Topic: "lab/smc100/chain"},
			Name:        "chain",
			DeviceCode:  "smc-01",
			DeviceType:  "smc100",
			DeviceModel: "SMC100CC",
		},
		CollectorCycle: 5,
		Address:        &v1.SerialAddress{Location: "/dev/ttyUSB0"},
		Axes:           axes,
	}
}

func TestCreateDevice(t *testing.T) {
	m := &SMC100DeviceManager{}

	created, err := m.CreateDevice(testV1Device(
		&v1.SMC100Axis{Name: "theta", Address: 1, HomeIsHardwareDefined: true},
		&v1.SMC100Axis{Name: "phi", Address: 2},
	))
	require.NoError(t, err)

	device, ok := created.(*smcruntime.SMC100Device)
	require.True(t, ok)
	assert.NotEmpty(t, device.ID)
	_, err = strconv.ParseUint(device.Version, 10, 64)
	assert.NoError(t, err)
	assert.Equal(t, runtime.CollectStatusToString[runtime.Stopped], device.CollectStatus)
	assert.Equal(t, uint(5), device.CollectorCycle)
	assert.Equal(t, "lab/smc100/chain", device.Topic)

	require.Len(t, device.Axes, 2)
	assert.True(t, device.Axes[0].HomeIsHardwareDefined)
	assert.Len(t, device.Variables, 12)

	// Serial parameters fall back to the SMC100 RS-232-C defaults.
	option := device.Address.Option
	assert.Equal(t, defaultBaudRate, option.BaudRate)
	assert.Equal(t, defaultDataBits, option.DataBits)
	assert.Equal(t, runtime.NoParity, option.Parity)
	assert.Equal(t, runtime.OneStopBit, option.StopBits)
}

func TestCreateDeviceWrongType(t *testing.T) {
	m := &SMC100DeviceManager{}

	_, err := m.CreateDevice(&v1.DeviceMeta{DeviceType: "modbus"})
	assert.ErrorIs(t, err, constant.ErrDeviceType)
}

func TestCreateDeviceAxisValidation(t *testing.T) {
	m := &SMC100DeviceManager{}

	_, err := m.CreateDevice(testV1Device(&v1.SMC100Axis{Name: "theta", Address: 32}))
	assert.ErrorIs(t, err, smcruntime.ErrAxisAddressRange)

	_, err = m.CreateDevice(testV1Device(
		&v1.SMC100Axis{Name: "theta", Address: 1},
		&v1.SMC100Axis{Name: "theta", Address: 2},
	))
	assert.ErrorIs(t, err, smcruntime.ErrAxisNameConflict)

	_, err = m.CreateDevice(testV1Device(
		&v1.SMC100Axis{Name: "theta", Address: 1},
		&v1.SMC100Axis{Name: "phi", Address: 1},
	))
	assert.ErrorIs(t, err, smcruntime.ErrAxisAddressConflict)
}

func TestToAddressOverrides(t *testing.T) {
	address := toAddress(&v1.SerialAddress{
		Location: "/dev/ttyS1",
		Option: &v1.SerialAddressOption{
			BaudRate: 115200,
			DataBits: 7,
			Parity:   "evenParity",
			StopBits: "2",
		},
	})

	assert.Equal(t, "/dev/ttyS1", address.Location)
	assert.Equal(t, 115200, address.Option.BaudRate)
	assert.Equal(t, 7, address.Option.DataBits)
	assert.Equal(t, runtime.EvenParity, address.Option.Parity)
	assert.Equal(t, runtime.TwoStopBits, address.Option.StopBits)
}

func TestUpdateDeviceRebuildsVariables(t *testing.T) {
	m := &SMC100DeviceManager{}

	created, err := m.CreateDevice(testV1Device(
		&v1.SMC100Axis{Name: "theta", Address: 1},
		&v1.SMC100Axis{Name: "phi", Address: 2},
	))
	require.NoError(t, err)
	device := created.(*smcruntime.SMC100Device)
	position, _ := device.GetVariable("theta.position")
	position.SetValue(4.5)

	update := testV1Device(
		&v1.SMC100Axis{Name: "theta", Address: 1},
		&v1.SMC100Axis{Name: "rho", Address: 3},
	)
	update.Name = "chain-renamed"
	update.Topic = "lab/smc100/chain-renamed"
	require.NoError(t, m.UpdateValidation(update, device))

	updated, err := m.UpdateDevice(device.ID, update, device)
	require.NoError(t, err)

	out := updated.(*smcruntime.SMC100Device)
	assert.Equal(t, "chain-renamed", out.Name)
	assert.Equal(t, "lab/smc100/chain-renamed", out.Topic)
	require.Len(t, out.Axes, 2)
	assert.Len(t, out.Variables, 12)

	// Variables of surviving axes keep their last collected value.
	kept, ok := out.GetVariable("theta.position")
	require.True(t, ok)
	assert.Equal(t, 4.5, kept.GetValue())

	fresh, ok := out.GetVariable("rho.position")
	require.True(t, ok)
	assert.Nil(t, fresh.GetValue())

	_, ok = out.GetVariable("phi.position")
	assert.False(t, ok)
}

func TestUpdateValidationWrongType(t *testing.T) {
	m := &SMC100DeviceManager{}

	err := m.UpdateValidation(&v1.DeviceMeta{DeviceType: "modbus"}, &smcruntime.SMC100Device{})
	assert.ErrorIs(t, err, constant.ErrDeviceType)
}

func TestDeleteDeviceKeepsIdentityOnly(t *testing.T) {
	m := &SMC100DeviceManager{}

	created, err := m.CreateDevice(testV1Device(&v1.SMC100Axis{Name: "theta", Address: 1}))
	require.NoError(t, err)

	deleted, err := m.DeleteDevice(created)
	require.NoError(t, err)
	out := deleted.(*smcruntime.SMC100Device)
	assert.Equal(t, created.GetID(), out.ID)
	assert.Equal(t, created.GetVersion(), out.Version)
	assert.Empty(t, out.Axes)
	assert.Empty(t, out.Variables)
}
