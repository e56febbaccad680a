package runtime

type CollectStatus int8

const (
	Collecting CollectStatus = iota
	CollectingError
	EmptyVariable
	Unconnected
	Stopped
	Error
)

var CollectStatusToString = map[CollectStatus]string{
	Collecting:      "collecting",
	CollectingError: "collectingError",
	EmptyVariable:   "emptyVariable",
	Unconnected:     "unconnected",
	Stopped:         "stopped",
	Error:           "error",
}

var StringToCollectStatus = map[string]CollectStatus{
	"collecting":      Collecting,
	"collectingError": CollectingError,
	"emptyVariable":   EmptyVariable,
	"unconnected":     Unconnected,
	"stopped":         Stopped,
	"error":           Error,
}

type DeviceStatusCh int8

const (
	Start DeviceStatusCh = iota
	Stop
	Restart
)

var DeviceStatusChToString = map[DeviceStatusCh]string{
	Start:   "start",
	Stop:    "stop",
	Restart: "restart",
}

var StringToDeviceStatusCh = map[string]DeviceStatusCh{
	"start":   Start,
	"stop":    Stop,
	"restart": Restart,
}

type StopBits int

const (
	// OneStopBit sets 1 stop bit (default)
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits
	TwoStopBits
)

var StopBitsToString = map[StopBits]string{
	OneStopBit:           "1",
	OnePointFiveStopBits: "1.5",
	TwoStopBits:          "2",
}

var StringToStopBits = map[string]StopBits{
	"1":   OneStopBit,
	"1.5": OnePointFiveStopBits,
	"2":   TwoStopBits,
}

type Parity int

const (
	// NoParity disable parity control (default)
	NoParity Parity = iota
	// OddParity enable odd-parity check
	OddParity
	// EvenParity enable even-parity check
	EvenParity
	// MarkParity enable mark-parity (always 1) check
	MarkParity
	// SpaceParity enable space-parity (always 0) check
	SpaceParity
)

var ParityToString = map[Parity]string{
	NoParity:    "noParity",
	OddParity:   "oddParity",
	EvenParity:  "evenParity",
	MarkParity:  "markParity",
	SpaceParity: "spaceParity",
}

var StringToParity = map[string]Parity{
	"noParity":    NoParity,
	"oddParity":   OddParity,
	"evenParity":  EvenParity,
	"markParity":  MarkParity,
	"spaceParity": SpaceParity,
}
