package runtime

import (
	"errors"
)

var (
	ErrDeviceType          = errors.New("unsupported device type")
	ErrAxisNotFound        = errors.New("axis not found")
	ErrAxisAddressConflict = errors.New("axis address conflict")
	ErrAxisNameConflict    = errors.New("axis name conflict")
	ErrAxisAddressRange    = errors.New("axis address out of range")
	ErrActionUnSupported   = errors.New("unsupported axis action")
	ErrSerialPortClosed    = errors.New("serial port closed")
)

// Axis variable suffixes. Every axis contributes one variable per suffix,
// named "<axis>.<suffix>".
const (
	VariablePosition = "position"
	VariableVelocity = "velocity"
	VariableState    = "state"
	VariableEnabled  = "enabled"
	VariableHome     = "home"
	VariableStop     = "stop"
)

// Bus address range of an SMC100 daisy chain. Address 0 addresses the link
// owner itself and elides the command prefix.
const (
	PrimaryAddress = 0
	MinAxisAddress = 1
	MaxAxisAddress = 31
)
