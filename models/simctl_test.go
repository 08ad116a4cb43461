package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simctlListOutput = `{
  "devices" : {
    "com.apple.CoreSimulator.SimRuntime.iOS-17-2" : [
      {
        "dataPath" : "/Users/runner/Library/Developer/CoreSimulator/Devices/A1/data",
        "udid" : "A1",
        "isAvailable" : true,
        "deviceTypeIdentifier" : "com.apple.CoreSimulator.SimDeviceType.iPhone-15",
        "state" : "Shutdown",
        "name" : "iPhone 15"
      }
    ],
    "com.apple.CoreSimulator.SimRuntime.iOS-14-0" : [
      {
        "udid" : "B1",
        "isAvailable" : true,
        "state" : "Booted",
        "name" : "iPhone 11"
      },
      {
        "udid" : "B2",
        "isAvailable" : false,
        "availabilityError" : "runtime profile not found",
        "state" : "Shutdown",
        "name" : "iPad (7th generation)"
      }
    ],
    "com.apple.CoreSimulator.SimRuntime.watchOS-10-2" : []
  }
}`

func TestSimctlDevices_PreservesRuntimeOrder(t *testing.T) {
	var data SimctlDevices
	require.NoError(t, json.Unmarshal([]byte(simctlListOutput), &data))

	inv := data.SimctlDevice
	require.Len(t, inv, 3)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.iOS-17-2", inv[0].Identifier)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.iOS-14-0", inv[1].Identifier)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.watchOS-10-2", inv[2].Identifier)

	require.Len(t, inv[1].Devices, 2)
	assert.Equal(t, "B1", inv[1].Devices[0].UDID)
	assert.Equal(t, SimStateBooted, inv[1].Devices[0].State)
	assert.False(t, inv[1].Devices[1].IsAvailable)
	assert.Empty(t, inv[2].Devices)

	assert.Len(t, inv.All(), 3)
}

func TestSimInventory_MarshalKeepsOrder(t *testing.T) {
	inv := SimInventory{
		{Identifier: "z-runtime", Devices: []SimctlDevice{{UDID: "1", Name: "a", State: SimStateShutdown}}},
		{Identifier: "a-runtime"},
	}
	out, err := json.Marshal(SimctlDevices{SimctlDevice: inv})
	require.NoError(t, err)
	assert.JSONEq(t, `{"devices":{"z-runtime":[{"udid":"1","isAvailable":false,"state":"Shutdown","name":"a"}],"a-runtime":[]}}`, string(out))

	var back SimctlDevices
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "z-runtime", back.SimctlDevice[0].Identifier)
	assert.Equal(t, "a-runtime", back.SimctlDevice[1].Identifier)
}

func TestSimInventory_Errors(t *testing.T) {
	var data SimctlDevices
	assert.Error(t, json.Unmarshal([]byte(`{"devices": []}`), &data))
	assert.Error(t, json.Unmarshal([]byte(`{"devices": {"rt": {"udid": "x"}}}`), &data))

	require.NoError(t, json.Unmarshal([]byte(`{"devices": null}`), &data))
	assert.Nil(t, data.SimctlDevice)
}

func TestNewSimInventory_SortsRuntimes(t *testing.T) {
	inv := NewSimInventory(map[string][]SimctlDevice{
		"com.apple.CoreSimulator.SimRuntime.iOS-17-2": {{UDID: "2"}},
		"com.apple.CoreSimulator.SimRuntime.iOS-14-0": {{UDID: "1"}},
	})
	require.Len(t, inv, 2)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.iOS-14-0", inv[0].Identifier)
	assert.Equal(t, "com.apple.CoreSimulator.SimRuntime.iOS-17-2", inv[1].Identifier)
}
