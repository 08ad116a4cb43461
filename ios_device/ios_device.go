package ios_device

import (
	"fmt"

	"github.com/danielpaulus/go-ios/ios"

	"github.com/shamanec/GADS-xctest-runner/destination"
	"github.com/shamanec/GADS-xctest-runner/logger"
)

// ConnectedDevice is a physical iOS device attached over usbmuxd
type ConnectedDevice struct {
	UDID      string `json:"udid"`
	Name      string `json:"name"`
	OSVersion string `json:"os_version"`
}

// Lister returns the currently connected physical devices
type Lister func() ([]ConnectedDevice, error)

// GetConnectedDevices uses the `go-ios` library to list attached devices with their name and OS version
func GetConnectedDevices() ([]ConnectedDevice, error) {
	deviceList, err := ios.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("Could not get connected iOS devices with `go-ios` - %w", err)
	}

	var connected []ConnectedDevice
	for _, entry := range deviceList.DeviceList {
		device := ConnectedDevice{UDID: entry.Properties.SerialNumber}

		plistValues, err := ios.GetValuesPlist(entry)
		if err != nil {
			logger.RunnerLogger.LogWarn("ios_device", fmt.Sprintf("Could not get info plist values with go-ios for `%s` - %s", device.UDID, err))
			continue
		}
		device.Name, _ = plistValues["DeviceName"].(string)
		device.OSVersion, _ = plistValues["ProductVersion"].(string)

		connected = append(connected, device)
	}
	return connected, nil
}

// FindDeviceUDID returns the UDID of the connected device with the given name.
// An empty os matches any version, otherwise the versions must be equal. The last match wins.
func FindDeviceUDID(devices []ConnectedDevice, os, name string) (string, bool) {
	var udid string
	found := false
	for _, device := range devices {
		if device.Name != name {
			continue
		}
		if os != "" && device.OSVersion != os {
			continue
		}
		udid = device.UDID
		found = true
	}
	return udid, found
}

// ResolveDestination looks up the UDID of a physical device destination by its name and OS
func ResolveDestination(list Lister, dest destination.Destination) (string, bool, error) {
	name, ok := dest.Get(destination.KeyName)
	if !ok {
		return "", false, fmt.Errorf("destination `%s` has no `name` to look up a device by", dest)
	}

	devices, err := list()
	if err != nil {
		return "", false, err
	}

	udid, found := FindDeviceUDID(devices, dest.OS(), name)
	return udid, found, nil
}
