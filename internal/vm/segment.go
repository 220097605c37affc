package vm

import (
	"sv39kernel/internal/addr"
	"sv39kernel/internal/mem"
)

// MapType selects how a Segment's virtual pages are backed.
type MapType int

const (
	// Linear segments derive their PPN directly from the kernel offset:
	// used for the kernel's own identity-ish high-half mapping.
	Linear MapType = iota
	// Framed segments back each page with a freshly allocated frame.
	Framed
)

// Segment describes one contiguous virtual-address region and the policy
// used to back it: its placement, its MapType, and the permission flags
// every page in the region receives.
type Segment struct {
	Start addr.Virtual
	End   addr.Virtual
	Type  MapType
	Flags mem.Flags
}

// PageRange returns the half-open VPN range [start, end) this segment
// covers, rounding Start down and End up to whole pages.
func (s Segment) PageRange() (addr.Vpn, addr.Vpn) {
	return addr.VpnFloor(s.Start), addr.VpnCeil(s.End)
}
