package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	SimStateBooted   = "Booted"
	SimStateShutdown = "Shutdown"
	SimStateBooting  = "Booting"
)

type SimctlDevice struct {
	AvailabilityError    string `json:"availabilityError,omitempty"`
	DataPath             string `json:"dataPath,omitempty"`
	DataPathSize         int    `json:"dataPathSize,omitempty"`
	LogPath              string `json:"logPath,omitempty"`
	UDID                 string `json:"udid"`
	IsAvailable          bool   `json:"isAvailable"`
	DeviceTypeIdentifier string `json:"deviceTypeIdentifier,omitempty"`
	State                string `json:"state"`
	Name                 string `json:"name"`
	LastBootedAt         string `json:"lastBootedAt,omitempty"`
	LogPathSize          int    `json:"logPathSize,omitempty"`
}

// SimRuntime groups the simulators of a single runtime identifier,
// e.g. `com.apple.CoreSimulator.SimRuntime.iOS-14-0`
type SimRuntime struct {
	Identifier string         `json:"runtime"`
	Devices    []SimctlDevice `json:"devices"`
}

// SimInventory is the `devices` object of `simctl list devices -j`.
// Runtimes keep the order they have in the JSON document.
type SimInventory []SimRuntime

// SimctlDevices is the top level `simctl list devices -j` document
type SimctlDevices struct {
	SimctlDevice SimInventory `json:"devices"`
}

// NewSimInventory builds an inventory from a map, runtimes sorted by identifier
func NewSimInventory(devices map[string][]SimctlDevice) SimInventory {
	runtimes := make([]string, 0, len(devices))
	for runtime := range devices {
		runtimes = append(runtimes, runtime)
	}
	sort.Strings(runtimes)

	inventory := make(SimInventory, 0, len(runtimes))
	for _, runtime := range runtimes {
		inventory = append(inventory, SimRuntime{Identifier: runtime, Devices: devices[runtime]})
	}
	return inventory
}

// All returns every simulator across runtimes
func (inv SimInventory) All() []SimctlDevice {
	var all []SimctlDevice
	for _, runtime := range inv {
		all = append(all, runtime.Devices...)
	}
	return all
}

func (inv *SimInventory) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*inv = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("simctl devices: expected object, got %v", tok)
	}

	inventory := SimInventory{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		runtime, ok := tok.(string)
		if !ok {
			return fmt.Errorf("simctl devices: expected runtime identifier, got %v", tok)
		}

		var devices []SimctlDevice
		if err := dec.Decode(&devices); err != nil {
			return fmt.Errorf("simctl devices: runtime `%s` - %w", runtime, err)
		}
		inventory = append(inventory, SimRuntime{Identifier: runtime, Devices: devices})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*inv = inventory
	return nil
}

func (inv SimInventory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, runtime := range inv {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(runtime.Identifier)
		if err != nil {
			return nil, err
		}
		devices := runtime.Devices
		if devices == nil {
			devices = []SimctlDevice{}
		}
		value, err := json.Marshal(devices)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
