package ios_sim

import (
	"strings"

	"github.com/shamanec/GADS-xctest-runner/models"
)

const runtimeOSPrefix = "iOS-"

// FindDeviceUDID returns the UDID of the simulator called name whose runtime identifier
// ends with `iOS-<os>`. The comparison is a plain suffix match, `14-0` and `14-10` are
// different runtimes and no version ordering is applied.
// When several simulators qualify the last one wins, runtimes are scanned in inventory order.
func FindDeviceUDID(inventory models.SimInventory, os, name string) (string, bool) {
	var udid string
	found := false

	suffix := runtimeOSPrefix + os
	for _, runtime := range inventory {
		if !strings.HasSuffix(runtime.Identifier, suffix) {
			continue
		}
		for _, device := range runtime.Devices {
			if device.Name == name {
				udid = device.UDID
				found = true
			}
		}
	}
	return udid, found
}

// NormalizeOSVersion turns a destination OS like `14.0` into the `14-0` form
// used by simulator runtime identifiers
func NormalizeOSVersion(os string) string {
	return strings.ReplaceAll(os, ".", "-")
}
