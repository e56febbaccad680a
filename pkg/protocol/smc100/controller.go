package smc100

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

const (
	movePollInterval     = 100 * time.Millisecond
	homeTelltaleInterval = 100 * time.Millisecond
	homeTelltaleRetries  = 5
)

// Controller is one addressable SMC100 unit on the daisy chain. All wire
// traffic is delegated to the shared Link with the bus address prefixed to
// each command; address 0 is the link owner and elides the prefix. The
// address is immutable once assigned.
type Controller struct {
	link    *Link
	address int

	connected *atomic.Bool
}

func newController(link *Link, address int) (*Controller, error) {
	if address < smcruntime.PrimaryAddress || address > smcruntime.MaxAxisAddress {
		return nil, fmt.Errorf("smc100: address %d outside [%d, %d]", address, smcruntime.PrimaryAddress, smcruntime.MaxAxisAddress)
	}
	return &Controller{
		link:      link,
		address:   address,
		connected: atomic.NewBool(false),
	}, nil
}

func (c *Controller) Address() int { return c.address }

func (c *Controller) Link() *Link { return c.link }

func (c *Controller) IsConnected() bool { return c.connected.Load() }

func (c *Controller) prefix() string {
	if c.address == smcruntime.PrimaryAddress {
		return ""
	}
	return strconv.Itoa(c.address)
}

// Write issues an address-prefixed set command. Set commands produce no reply.
func (c *Controller) Write(cmd string) error {
	_, err := c.link.Transact(c.prefix()+cmd, false)
	return err
}

// Query issues an address-prefixed query and strips the echoed command prefix
// from the reply. A reply that does not echo the sent command is a
// ProtocolError, never silently returned as a value.
func (c *Controller) Query(cmd string, checkError bool) (string, error) {
	echo := c.prefix() + cmd
	reply, err := c.link.Transact(echo+"?", checkError)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(reply, echo) {
		return "", &ProtocolError{Command: echo + "?", Reply: reply}
	}
	return reply[len(echo):], nil
}

func (c *Controller) queryFloat(cmd string) (float64, error) {
	value, err := c.Query(cmd, false)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ProtocolError{Command: c.prefix() + cmd + "?", Reply: value}
	}
	return f, nil
}

// Position returns the encoder position (TP). While moving this value keeps
// changing; in ready state it tracks the set point.
func (c *Controller) Position() (float64, error) {
	return c.queryFloat("TP")
}

// SetPosition validates the set point against the travel limits and issues an
// absolute move (PA). Out-of-range values fail with RangeError before any
// wire traffic.
func (c *Controller) SetPosition(value float64) error {
	min, err := c.MinPosition()
	if err != nil {
		return err
	}
	max, err := c.MaxPosition()
	if err != nil {
		return err
	}
	if value < min || value > max {
		return &RangeError{Value: value, Min: min, Max: max}
	}
	return c.Write("PA" + strconv.FormatFloat(value, 'f', -1, 64))
}

func (c *Controller) MinPosition() (float64, error) {
	return c.queryFloat("SL")
}

func (c *Controller) MaxPosition() (float64, error) {
	return c.queryFloat("SR")
}

func (c *Controller) Velocity() (float64, error) {
	return c.queryFloat("VA")
}

// Identity returns the axis model and serial number (ID).
func (c *Controller) Identity() (string, error) {
	return c.Query("ID", false)
}

// Version returns the controller revision information (VE).
func (c *Controller) Version() (string, error) {
	return c.Query("VE", false)
}

// Stage returns the connected stage designation (ZX).
func (c *Controller) Stage() (string, error) {
	return c.Query("ZX", false)
}

// SetAutoStageCheck toggles the power-up stage verification (ZX3 enables,
// ZX1 disables).
func (c *Controller) SetAutoStageCheck(enabled bool) error {
	if enabled {
		return c.Write("ZX3")
	}
	return c.Write("ZX1")
}

// UpdateStageSettings re-reads the parameters of the connected stage (ZX2).
func (c *Controller) UpdateStageSettings() (string, error) {
	return c.Query("ZX2", false)
}

// IsEnabled reports whether the motor is energized (MM). The decoded reply is
// compared against the stringified value, not a numeric literal.
func (c *Controller) IsEnabled() (bool, error) {
	value, err := c.Query("MM", false)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(value) == "1", nil
}

func (c *Controller) SetEnabled(enabled bool) error {
	if enabled {
		return c.Write("MM1")
	}
	return c.Write("MM0")
}

// HomeIsHardwareDefined reports whether the home reference comes from the
// stage hardware (HT2) or the mechanical end of travel (HT1). During startup
// the controller transiently reports other values; those are re-polled a
// bounded number of times before giving up.
func (c *Controller) HomeIsHardwareDefined() (bool, error) {
	var last string
	for attempt := 0; attempt < homeTelltaleRetries; attempt++ {
		value, err := c.Query("HT", false)
		if err != nil {
			return false, err
		}
		switch strings.TrimSpace(value) {
		case "1":
			return false, nil
		case "2":
			return true, nil
		}
		last = value
		time.Sleep(homeTelltaleInterval)
	}
	return false, &ProtocolError{Command: c.prefix() + "HT?", Reply: last}
}

// SetHomeIsHardwareDefined writes the home search type. The controller only
// accepts HT writes in configuration state, so the state driver forces the
// transition first; nothing is written when the value already matches.
func (c *Controller) SetHomeIsHardwareDefined(ctx context.Context, hardware bool) error {
	current, err := c.HomeIsHardwareDefined()
	if err != nil {
		return err
	}
	if current == hardware {
		return nil
	}
	if err := c.RequestState(ctx, smcruntime.StateConfiguration).Wait(ctx); err != nil {
		return err
	}
	if hardware {
		return c.Write("HT2")
	}
	return c.Write("HT1")
}

// Stop decelerates a move in progress to a standstill (ST). A safety
// primitive, not an emergency halt.
func (c *Controller) Stop() error {
	return c.Write("ST")
}

// GoHome starts the home search (OR). With wait set, polls until the
// controller leaves the moving states.
func (c *Controller) GoHome(ctx context.Context, wait bool) error {
	if err := c.Write("OR"); err != nil {
		return err
	}
	if wait {
		return c.waitSettled(ctx)
	}
	return nil
}

// GoTo issues an absolute move and optionally waits for it to finish.
func (c *Controller) GoTo(ctx context.Context, position float64, wait bool) error {
	if err := c.SetPosition(position); err != nil {
		return err
	}
	if wait {
		return c.waitSettled(ctx)
	}
	return nil
}

// State returns the semantic controller state decoded from TS. Transport or
// decode failures resolve to StateUnknown so polling loops can absorb them.
func (c *Controller) State() smcruntime.ControllerState {
	value, err := c.Query("TS", false)
	if err != nil {
		klog.V(4).InfoS("Failed to read controller status", "address", c.address, "err", err)
		return smcruntime.StateUnknown
	}
	return smcruntime.DecodeState(value)
}

func (c *Controller) waitSettled(ctx context.Context) error {
	for {
		switch c.State() {
		case smcruntime.StateMoving, smcruntime.StateHoming:
		default:
			return nil
		}
		if err := sleepCtx(ctx, movePollInterval); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
