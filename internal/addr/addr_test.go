package addr

import (
	"testing"

	"sv39kernel/internal/memlayout"
)

func TestPpnFloorCeil(t *testing.T) {
	cases := []Physical{0, 1, memlayout.PageSize - 1, memlayout.PageSize, memlayout.PageSize + 1, 0x8000_1234}
	for _, a := range cases {
		floor := PpnFloor(a)
		ceil := PpnCeil(a)
		if uint64(floor) > uint64(a)/memlayout.PageSize || uint64(ceil) < uint64(a)/memlayout.PageSize {
			t.Fatalf("floor/ceil bracket violated for %d: floor=%d ceil=%d", a, floor, ceil)
		}
		diff := uint64(ceil) - uint64(floor)
		if diff != 0 && diff != 1 {
			t.Fatalf("ceil-floor out of {0,1} for %d: got %d", a, diff)
		}
	}
}

func TestVirtualPhysicalRoundTrip(t *testing.T) {
	p := Physical(0x8012_3000)
	v := p.ToVirtual()
	if v.ToPhysical() != p {
		t.Fatalf("round trip failed: got %x want %x", v.ToPhysical(), p)
	}
	if uint64(v) != uint64(p)+memlayout.KernelMapOffset {
		t.Fatalf("ToVirtual did not apply KernelMapOffset")
	}
}

func TestVpnIndices(t *testing.T) {
	// VPN bits: [26:18] [17:9] [8:0]
	v := Vpn(0b000_000_001_000_000_010_000_000_011)
	idx := v.Indices()
	if idx[0] != 1 || idx[1] != 2 || idx[2] != 3 {
		t.Fatalf("unexpected index decomposition: %v", idx)
	}
}
