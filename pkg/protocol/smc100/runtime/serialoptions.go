package runtime

import (
	"go.bug.st/serial"

	"smcgateway/pkg/runtime"
)

var ParityToSerial = map[runtime.Parity]serial.Parity{
	runtime.NoParity:    serial.NoParity,
	runtime.OddParity:   serial.OddParity,
	runtime.EvenParity:  serial.EvenParity,
	runtime.MarkParity:  serial.MarkParity,
	runtime.SpaceParity: serial.SpaceParity,
}

var StopBitsToSerial = map[runtime.StopBits]serial.StopBits{
	runtime.OneStopBit:           serial.OneStopBit,
	runtime.OnePointFiveStopBits: serial.OnePointFiveStopBits,
	runtime.TwoStopBits:          serial.TwoStopBits,
}
