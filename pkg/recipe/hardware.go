package recipe

import (
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
)

// hardwareProbe caches the host's GPU inventory: ghw.GPU() shells out to
// sysfs/WMI and is not cheap enough to call on every status refresh.
var hardwareProbe = sync.OnceValues(func() ([]string, error) {
	info, err := ghw.GPU(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	vendors := make([]string, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		if card.DeviceInfo == nil || card.DeviceInfo.Vendor == nil {
			continue
		}
		vendors = append(vendors, strings.ToLower(card.DeviceInfo.Vendor.Name))
	}
	return vendors, nil
})

// hasVendorGPU reports whether the host's PCI GPU inventory includes a
// device from a vendor whose name contains substr (case-insensitive).
func hasVendorGPU(substr string) bool {
	vendors, err := hardwareProbe()
	if err != nil {
		return false
	}
	substr = strings.ToLower(substr)
	for _, v := range vendors {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}
