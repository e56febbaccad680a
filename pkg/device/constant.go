package device

import (
	"time"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"

	"smcgateway/pkg/protocol/smc100"
)

var DeviceManagers = map[string]DeviceManager{
	"smc100": &smc100.SMC100DeviceManager{},
}

var patchTypes = sets.NewString(string(types.JSONPatchType), string(types.MergePatchType))

const (
	maxJSONPatchOperations = 1000
	mqttTimeout            = 1 * time.Second
	heartBeatTimeInterval  = 15 * time.Second
)
