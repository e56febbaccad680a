package smc100

import (
	"context"
	"fmt"
	"time"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"k8s.io/klog/v2"
)

const (
	stateSettleInterval = 200 * time.Millisecond
	rebootReadTimeout   = 500 * time.Millisecond
)

// StateRequest is the handle of one asynchronous state-drive task. Err must
// only be consulted after Done is closed.
type StateRequest struct {
	target smcruntime.ControllerState
	done   chan struct{}
	err    error
}

func (r *StateRequest) Target() smcruntime.ControllerState { return r.target }

func (r *StateRequest) Done() <-chan struct{} { return r.done }

func (r *StateRequest) Err() error { return r.err }

// Wait blocks until the drive task resolves or ctx is canceled.
func (r *StateRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestState launches a goroutine that repeatedly inspects the current
// state and takes the single next corrective action needed to approach
// target, looping until the controller reports target or ctx is canceled.
// This is goal-directed, not a fixed transition table: intermediate states
// (homing, configuration, reboot) are crossed one step per iteration.
func (c *Controller) RequestState(ctx context.Context, target smcruntime.ControllerState) *StateRequest {
	r := &StateRequest{target: target, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.err = c.driveState(ctx, target)
	}()
	return r
}

func (c *Controller) driveState(ctx context.Context, target smcruntime.ControllerState) error {
	for {
		current := c.State()
		if current == target {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		klog.V(5).InfoS("Driving controller state", "address", c.address, "current", current, "target", target)

		var err error
		switch {
		case current == smcruntime.StateUnknown:
			// Status is transient or unreadable, do not act blindly.
			err = sleepCtx(ctx, stateSettleInterval)
		case target == smcruntime.StateNotReferenced:
			err = c.reset(ctx)
		case target == smcruntime.StateConfiguration:
			if current == smcruntime.StateNotReferenced {
				err = c.Write("PW1")
			} else {
				err = c.driveState(ctx, smcruntime.StateNotReferenced)
			}
		case target == smcruntime.StateReady:
			switch current {
			case smcruntime.StateConfiguration:
				err = c.Write("PW0")
			case smcruntime.StateNotReferenced:
				err = c.GoHome(ctx, true)
			case smcruntime.StateDisable:
				err = c.Write("MM1")
			default:
				// Jogging, moving or homing settle on their own.
				err = sleepCtx(ctx, stateSettleInterval)
			}
		case target == smcruntime.StateDisable:
			err = c.Write("MM0")
		default:
			return fmt.Errorf("smc100: state %s is not a drivable target", target)
		}
		if err != nil {
			return err
		}
	}
}

// reset reboots the controller (RS) and waits for it to come back up not
// referenced. The read timeout is lowered for the duration so the reboot gap
// is detected quickly instead of stalling a full timeout per poll.
func (c *Controller) reset(ctx context.Context) error {
	if err := c.Write("RS"); err != nil {
		return err
	}
	previous := c.link.ReadTimeout()
	if err := c.link.SetReadTimeout(rebootReadTimeout); err != nil {
		return err
	}
	defer func() {
		if err := c.link.SetReadTimeout(previous); err != nil {
			klog.V(2).InfoS("Failed to restore read timeout", "address", c.address, "err", err)
		}
	}()
	for c.State() != smcruntime.StateNotReferenced {
		if err := sleepCtx(ctx, stateSettleInterval); err != nil {
			return err
		}
	}
	return nil
}

// Connect marks the controller connected, applies the home-reference flag and
// drives it to ready. Connection is all-or-nothing: any failure flips the
// controller back to disconnected before reporting.
func (c *Controller) Connect(ctx context.Context, homeIsHardwareDefined bool, wait bool) error {
	c.connected.Store(true)
	if err := c.SetHomeIsHardwareDefined(ctx, homeIsHardwareDefined); err != nil {
		c.connected.Store(false)
		return err
	}
	request := c.RequestState(ctx, smcruntime.StateReady)
	if !wait {
		return nil
	}
	if err := request.Wait(ctx); err != nil {
		c.connected.Store(false)
		return err
	}
	return nil
}
