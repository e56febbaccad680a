package runtime

import (
	"strings"
)

// ControllerState is the semantic operating mode of one SMC100 controller,
// decoded from the last two hex characters of a TS status reply.
type ControllerState int8

const (
	StateUnknown ControllerState = iota
	StateNotReferenced
	StateConfiguration
	StateHoming
	StateMoving
	StateReady
	StateDisable
	StateJogging
)

var ControllerStateToString = map[ControllerState]string{
	StateUnknown:       "unknown",
	StateNotReferenced: "notReferenced",
	StateConfiguration: "configuration",
	StateHoming:        "homing",
	StateMoving:        "moving",
	StateReady:         "ready",
	StateDisable:       "disable",
	StateJogging:       "jogging",
}

var StringToControllerState = map[string]ControllerState{
	"unknown":       StateUnknown,
	"notReferenced": StateNotReferenced,
	"configuration": StateConfiguration,
	"homing":        StateHoming,
	"moving":        StateMoving,
	"ready":         StateReady,
	"disable":       StateDisable,
	"jogging":       StateJogging,
}

func (cs ControllerState) String() string {
	if s, ok := ControllerStateToString[cs]; ok {
		return s
	}
	return "unknown"
}

// codeToState maps the 2-hex-digit controller status codes documented for the
// SMC100 TS command. Codes absent from the table decode to StateUnknown.
var codeToState = map[string]ControllerState{
	"0A": StateNotReferenced,
	"0B": StateNotReferenced,
	"0C": StateNotReferenced,
	"0D": StateNotReferenced,
	"0E": StateNotReferenced,
	"0F": StateNotReferenced,
	"10": StateNotReferenced,
	"11": StateNotReferenced,
	"14": StateConfiguration,
	"1E": StateHoming,
	"1F": StateHoming,
	"28": StateMoving,
	"32": StateReady,
	"33": StateReady,
	"34": StateReady,
	"35": StateReady,
	"3C": StateDisable,
	"3D": StateDisable,
	"3E": StateDisable,
	"46": StateJogging,
	"47": StateJogging,
}

// DecodeState maps a raw TS status value to its semantic state. The TS reply
// carries four hex characters of positioner error flags followed by the two
// state characters; only the trailing two are significant here. Any value too
// short or outside the documented table yields StateUnknown, never an error.
func DecodeState(status string) ControllerState {
	if len(status) < 2 {
		return StateUnknown
	}
	code := strings.ToUpper(status[len(status)-2:])
	if s, ok := codeToState[code]; ok {
		return s
	}
	return StateUnknown
}
