package smc100

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
)

func TestDriveDisableToReady(t *testing.T) {
	controller, sim, port := newTestController(t, 0)
	sim.setState("3C")

	err := controller.RequestState(context.Background(), smcruntime.StateReady).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TS?", "MM1", "TS?"}, port.commands())
	assert.Equal(t, smcruntime.StateReady, controller.State())
}

func TestDriveReadyToDisable(t *testing.T) {
	controller, _, port := newTestController(t, 0)

	err := controller.RequestState(context.Background(), smcruntime.StateDisable).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TS?", "MM0", "TS?"}, port.commands())
}

func TestDriveNotReferencedToReady(t *testing.T) {
	controller, sim, port := newTestController(t, 0)
	sim.setState("0A")

	err := controller.RequestState(context.Background(), smcruntime.StateReady).Wait(context.Background())
	require.NoError(t, err)
	assert.Contains(t, port.commands(), "OR")
	assert.Equal(t, smcruntime.StateReady, controller.State())
}

func TestDriveReadyToConfiguration(t *testing.T) {
	controller, sim, port := newTestController(t, 0)

	err := controller.RequestState(context.Background(), smcruntime.StateConfiguration).Wait(context.Background())
	require.NoError(t, err)
	// Configuration is only reachable through a reboot into not referenced.
	commands := port.commands()
	assert.Contains(t, commands, "RS")
	assert.Contains(t, commands, "PW1")
	assert.Equal(t, smcruntime.StateConfiguration, controller.State())
	assert.Equal(t, "14", sim.state)
}

func TestDriveResetRestoresReadTimeout(t *testing.T) {
	controller, _, port := newTestController(t, 0)

	err := controller.RequestState(context.Background(), smcruntime.StateNotReferenced).Wait(context.Background())
	require.NoError(t, err)

	// The reboot poll runs on a shortened timeout which is restored after.
	require.GreaterOrEqual(t, len(port.timeouts), 2)
	assert.Equal(t, rebootReadTimeout, port.timeouts[len(port.timeouts)-2])
	assert.Equal(t, controller.Link().ReadTimeout(), port.timeouts[len(port.timeouts)-1])
}

func TestDriveUndrivableTarget(t *testing.T) {
	controller, _, _ := newTestController(t, 0)

	err := controller.RequestState(context.Background(), smcruntime.StateMoving).Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a drivable target")
}

func TestDriveCanceledWhileUnreadable(t *testing.T) {
	link, _ := newTestLink(nil)
	controller := NewRegistry(link).Primary()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := controller.RequestState(ctx, smcruntime.StateReady).Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectDrivesReady(t *testing.T) {
	controller, sim, _ := newTestController(t, 0)
	sim.setState("0A")

	require.NoError(t, controller.Connect(context.Background(), false, true))
	assert.True(t, controller.IsConnected())
	assert.Equal(t, smcruntime.StateReady, controller.State())
}

func TestConnectWritesHomeSearchType(t *testing.T) {
	controller, sim, port := newTestController(t, 0)

	require.NoError(t, controller.Connect(context.Background(), true, true))
	assert.True(t, controller.IsConnected())
	// Switching the home reference forces configuration state first.
	assert.Contains(t, port.commands(), "HT2")
	assert.Equal(t, "2", sim.home)
	assert.Equal(t, smcruntime.StateReady, controller.State())
}

func TestConnectRollsBackOnFailure(t *testing.T) {
	sim := newAxisSim("")
	sim.setHome("9")
	link, _ := newTestLink(sim.handle)
	controller := NewRegistry(link).Primary()

	err := controller.Connect(context.Background(), false, true)
	require.Error(t, err)
	assert.False(t, controller.IsConnected())
}

func TestStateRequestDoneAndErr(t *testing.T) {
	controller, _, _ := newTestController(t, 0)

	request := controller.RequestState(context.Background(), smcruntime.StateReady)
	assert.Equal(t, smcruntime.StateReady, request.Target())
	select {
	case <-request.Done():
	case <-time.After(time.Second):
		t.Fatal("state request did not resolve")
	}
	assert.NoError(t, request.Err())
}
