package smc100

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"smcgateway/pkg/runtime"
	"smcgateway/pkg/runtime/constant"
)

func testDevice(axes ...*smcruntime.Axis) *smcruntime.SMC100Device {
	device := &smcruntime.SMC100Device{
		DeviceMeta: runtime.DeviceMeta{
			ObjectMeta: runtime.ObjectMeta{Name: "chain", ID: "device-1"},
			DeviceType: "smc100",
		},
		CollectorCycle: 1,
		Address: &smcruntime.Address{
			Location: "/dev/ttyUSB0",
			Option:   &smcruntime.Option{BaudRate: defaultBaudRate, DataBits: defaultDataBits},
		},
		Axes: axes,
	}
	device.IndexDevice()
	return device
}

func newTestBroker(t *testing.T) (*SMC100Broker, chan *runtime.ParseVariableResult, *axisSim, *busPort) {
	t.Helper()
	sim := newAxisSim("1")
	link, port := newTestLink(sim.handle)
	device := testDevice(&smcruntime.Axis{Name: "theta", Address: 1})

	broker, results, err := newBroker(device, link)
	require.NoError(t, err)
	return broker, results, sim, port
}

func TestNewBrokerRejectsWrongDeviceType(t *testing.T) {
	_, _, err := NewBroker(&runtime.DeviceMeta{})
	assert.ErrorIs(t, err, smcruntime.ErrDeviceType)
}

func TestNewBrokerRejectsEmptyAxes(t *testing.T) {
	_, _, err := NewBroker(testDevice())
	assert.ErrorIs(t, err, constant.ErrDeviceEmptyVariable)
}

func TestNewBrokerConnectsEveryAxis(t *testing.T) {
	broker, _, _, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	assert.True(t, broker.CanCollect)
	assert.Equal(t, 4, broker.VariableCount)
	controller, ok := broker.Registry.Controller(1)
	require.True(t, ok)
	assert.True(t, controller.IsConnected())
}

func TestNewBrokerConnectFailure(t *testing.T) {
	sim := newAxisSim("1")
	sim.setHome("9")
	link, _ := newTestLink(sim.handle)
	device := testDevice(&smcruntime.Axis{Name: "theta", Address: 1})

	_, _, err := newBroker(device, link)
	assert.ErrorIs(t, err, constant.ErrConnectDevice)
}

func TestBrokerPoll(t *testing.T) {
	broker, results, sim, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())
	sim.pos = 2.5

	require.True(t, broker.poll(context.Background()))

	result := <-results
	assert.Empty(t, result.Err)
	require.Len(t, result.VariableSlice, 4)
	values := make(map[string]interface{}, len(result.VariableSlice))
	for _, variable := range result.VariableSlice {
		values[variable.GetVariableName()] = variable.GetValue()
	}
	assert.Equal(t, 2.5, values["theta.position"])
	assert.Equal(t, 1.5, values["theta.velocity"])
	assert.Equal(t, true, values["theta.enabled"])
	assert.Equal(t, "ready", values["theta.state"])

	// Collected values are reflected back onto the indexed device variables.
	position, ok := broker.Device.GetVariable("theta.position")
	require.True(t, ok)
	assert.Equal(t, 2.5, position.GetValue())
}

func TestBrokerPollCollectsReadErrors(t *testing.T) {
	sim := newAxisSim("1")
	link, _ := newTestLink(func(cmd string) (string, bool) {
		if cmd == "1TP?" {
			return "garbage", true
		}
		return sim.handle(cmd)
	})
	device := testDevice(&smcruntime.Axis{Name: "theta", Address: 1})
	broker, results, err := newBroker(device, link)
	require.NoError(t, err)
	defer broker.Destroy(context.Background())

	require.True(t, broker.poll(context.Background()))

	result := <-results
	assert.Len(t, result.Err, 1)
	// The remaining variables of the pass still get collected.
	assert.Len(t, result.VariableSlice, 3)
}

func TestBrokerCollectStopsOnDestroy(t *testing.T) {
	broker, results, _, port := newTestBroker(t)

	broker.Collect(context.Background())
	select {
	case result := <-results:
		require.NotNil(t, result)
	case <-time.After(2 * time.Second):
		t.Fatal("no collection result")
	}

	broker.Destroy(context.Background())
	assert.True(t, port.closed)
	// The collect goroutine owns VariableCh; it closes the channel once it
	// observes the shutdown, at the latest after the current cycle sleep.
	assert.Eventually(t, func() bool {
		_, open := <-results
		return !open
	}, 3*time.Second, 10*time.Millisecond)
}

func TestBrokerDeliverPosition(t *testing.T) {
	broker, _, sim, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"theta.position": 10.0})
	require.NoError(t, err)
	assert.Equal(t, 10.0, sim.pos)
}

func TestBrokerDeliverPositionOutOfRange(t *testing.T) {
	broker, _, sim, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"theta.position": 100.0})
	require.Error(t, err)
	assert.Equal(t, 0.0, sim.pos)
}

func TestBrokerDeliverEnabled(t *testing.T) {
	broker, _, sim, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"theta.enabled": false})
	require.NoError(t, err)
	assert.False(t, sim.enabled)
}

func TestBrokerDeliverStop(t *testing.T) {
	broker, _, _, port := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"theta.stop": true})
	require.NoError(t, err)
	assert.Contains(t, port.commands(), "1ST")
}

func TestBrokerDeliverState(t *testing.T) {
	broker, _, sim, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"theta.state": "disable"})
	require.NoError(t, err)
	// State requests resolve asynchronously.
	assert.Eventually(t, func() bool {
		sim.mu.Lock()
		defer sim.mu.Unlock()
		return sim.state == "3C"
	}, time.Second, 10*time.Millisecond)
}

func TestBrokerDeliverRejectsUnknowns(t *testing.T) {
	broker, _, _, _ := newTestBroker(t)
	defer broker.Destroy(context.Background())

	err := broker.DeliverAction(context.Background(), map[string]interface{}{"phi.position": 1.0})
	assert.Error(t, err)

	err = broker.DeliverAction(context.Background(), map[string]interface{}{"theta.bogus": 1.0})
	assert.Error(t, err)

	err = broker.DeliverAction(context.Background(), map[string]interface{}{"noseparator": 1.0})
	assert.Error(t, err)

	err = broker.DeliverAction(context.Background(), map[string]interface{}{"theta.state": "unknown"})
	assert.Error(t, err)

	err = broker.DeliverAction(context.Background(), map[string]interface{}{"theta.position": "northwest"})
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	for _, value := range []interface{}{float64(2), float32(2), int(2), int64(2), uint(2)} {
		got, ok := toFloat(value)
		require.True(t, ok)
		assert.Equal(t, 2.0, got)
	}
	_, ok := toFloat("2")
	assert.False(t, ok)
}
