package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeState(t *testing.T) {
	testCases := []struct {
		status string
		want   ControllerState
	}{
		{"0A", StateNotReferenced},
		{"11", StateNotReferenced},
		{"14", StateConfiguration},
		{"1E", StateHoming},
		{"1F", StateHoming},
		{"28", StateMoving},
		{"32", StateReady},
		{"35", StateReady},
		{"3C", StateDisable},
		{"3E", StateDisable},
		{"46", StateJogging},
		{"47", StateJogging},
		// Only the trailing two characters carry the state; the leading four
		// are positioner error flags.
		{"00000A", StateNotReferenced},
		{"001032", StateReady},
		{"01001E", StateHoming},
		// Lowercase replies decode the same.
		{"0a", StateNotReferenced},
		{"00003c", StateDisable},
		// Undocumented, short or empty values are unknown, never an error.
		{"99", StateUnknown},
		{"FF", StateUnknown},
		{"5", StateUnknown},
		{"", StateUnknown},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, DecodeState(tc.status), "status %q", tc.status)
	}
}

func TestControllerStateString(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "notReferenced", StateNotReferenced.String())
	assert.Equal(t, "unknown", ControllerState(99).String())
}

func TestControllerStateStringRoundTrip(t *testing.T) {
	for state, s := range ControllerStateToString {
		assert.Equal(t, state, StringToControllerState[s])
	}
}
