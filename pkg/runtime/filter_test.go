package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaDevice(name, id, code, deviceType string) Device {
	return &DeviceMeta{
		ObjectMeta: ObjectMeta{Name: name, ID: id},
		DeviceCode: code,
		DeviceType: deviceType,
	}
}

func matchAll(predicates []predicateDevice, d Device) bool {
	for _, predicate := range predicates {
		if !predicate(d) {
			return false
		}
	}
	return true
}

func TestParseDeviceFilterFields(t *testing.T) {
	chain := metaDevice("chain-a", "id-1", "smc-01", "smc100")
	other := metaDevice("chain-b", "id-2", "smc-02", "smc100")

	predicates := ParseDeviceFilter(&DeviceFilter{Id: "id-1", DeviceType: "smc100"})
	require.Len(t, predicates, 2)
	assert.True(t, matchAll(predicates, chain))
	assert.False(t, matchAll(predicates, other))

	predicates = ParseDeviceFilter(&DeviceFilter{DeviceCode: "smc-02"})
	assert.False(t, matchAll(predicates, chain))
	assert.True(t, matchAll(predicates, other))
}

func TestParseDeviceFilterName(t *testing.T) {
	chain := metaDevice("chain-a", "id-1", "smc-01", "smc100")

	predicates := ParseDeviceFilter(&DeviceFilter{Name: "chain-a"})
	assert.True(t, matchAll(predicates, chain))

	predicates = ParseDeviceFilter(&DeviceFilter{Name: map[string]interface{}{"contains": "ain-a"}})
	assert.True(t, matchAll(predicates, chain))

	predicates = ParseDeviceFilter(&DeviceFilter{Name: map[string]interface{}{"in": []string{"chain-b", "chain-a"}}})
	assert.True(t, matchAll(predicates, chain))

	predicates = ParseDeviceFilter(&DeviceFilter{Name: map[string]interface{}{"eq": "chain-b"}})
	assert.False(t, matchAll(predicates, chain))
}

func TestDeviceSorter(t *testing.T) {
	byName := func(d1, d2 Device) bool { return d1.GetName() < d2.GetName() }
	devices := []Device{
		metaDevice("c", "3", "", "smc100"),
		metaDevice("a", "1", "", "smc100"),
		metaDevice("b", "2", "", "smc100"),
	}

	ByDevice(byName).Sort(devices)
	assert.Equal(t, "a", devices[0].GetName())
	assert.Equal(t, "b", devices[1].GetName())
	assert.Equal(t, "c", devices[2].GetName())
}
