package smc100

import (
	"errors"
	"fmt"
)

var (
	// ErrWriteTimeout reports a serial write that did not complete within the
	// port deadline. Recovered internally by the Link retry loop.
	ErrWriteTimeout = errors.New("serial write timeout")
	// ErrReadTimeout reports a read that returned no data within the port
	// read timeout.
	ErrReadTimeout = errors.New("serial read timeout")
)

// ConnectionError reports a failure to open or use the serial transport.
// A failed connect leaves the affected controller disconnected and inert.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("smc100: connection error during %s", e.Op)
	}
	return fmt.Sprintf("smc100: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DeviceError is a non-zero fault reported by the controller on its TB error
// channel. Surfaced to the caller of an error-checked transaction, never
// retried.
type DeviceError struct {
	Code        string
	Description string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("smc100: device error %s: %s", e.Code, e.Description)
}

// RangeError is a client-side validation failure on a position set point.
// Raised before any wire traffic.
type RangeError struct {
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("smc100: position %v outside [%v, %v]", e.Value, e.Min, e.Max)
}

// ProtocolError reports a reply whose echoed command prefix does not match
// the query that was sent, or a status value that never resolved.
type ProtocolError struct {
	Command string
	Reply   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smc100: malformed reply %q to command %q", e.Reply, e.Command)
}

type timeouter interface {
	Timeout() bool
}

// isTimeout reports whether err is a recoverable transport timeout.
func isTimeout(err error) bool {
	if errors.Is(err, ErrWriteTimeout) || errors.Is(err, ErrReadTimeout) {
		return true
	}
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}
