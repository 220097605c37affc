package mem

import (
	"testing"

	"sv39kernel/internal/addr"
)

func fakeArena(pages int) func(addr.Ppn) []byte {
	arena := make([]byte, pages*4096)
	return func(p addr.Ppn) []byte {
		off := int(p) * 4096
		return arena[off : off+4096]
	}
}

func withFakeArena(t *testing.T, start addr.Ppn, pages int) {
	t.Helper()
	backing := fakeArena(pages)
	old := dmap
	dmap = func(p addr.Ppn) []byte { return backing(p - start) }
	t.Cleanup(func() { dmap = old })
}

func TestFrameAllocatorRangeAndUniqueness(t *testing.T) {
	start, end := addr.Ppn(100), addr.Ppn(110)
	withFakeArena(t, start, int(end-start))
	a := NewFrameAllocator(start, end)

	seen := map[addr.Ppn]bool{}
	var live []*FrameTracker
	for {
		ft, err := a.Alloc()
		if err != nil {
			break
		}
		if ft.Ppn() < start || ft.Ppn() >= end {
			t.Fatalf("ppn %d outside configured range [%d,%d)", ft.Ppn(), start, end)
		}
		if seen[ft.Ppn()] {
			t.Fatalf("ppn %d issued twice while live", ft.Ppn())
		}
		seen[ft.Ppn()] = true
		live = append(live, ft)
	}
	if len(live) != int(end-start) {
		t.Fatalf("expected %d frames, got %d", end-start, len(live))
	}

	for _, ft := range live {
		ft.Free()
	}
	if got := a.FreeCapacity(); got != int(end-start) {
		t.Fatalf("capacity not restored: got %d want %d", got, end-start)
	}
}

func TestFrameAllocatorOutOfMemory(t *testing.T) {
	start, end := addr.Ppn(0), addr.Ppn(1)
	withFakeArena(t, start, 1)
	a := NewFrameAllocator(start, end)
	if _, err := a.Alloc(); err != nil {
		t.Fatalf("first alloc should succeed: %v", err)
	}
	if _, err := a.Alloc(); err == nil {
		t.Fatalf("expected out-of-memory error")
	}
}

func TestFrameTrackerDoubleFreePanics(t *testing.T) {
	start, end := addr.Ppn(0), addr.Ppn(1)
	withFakeArena(t, start, 1)
	a := NewFrameAllocator(start, end)
	ft, err := a.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	ft.Free()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double free")
		}
	}()
	ft.Free()
}

func TestAllocReturnsZeroedFrame(t *testing.T) {
	start, end := addr.Ppn(0), addr.Ppn(1)
	withFakeArena(t, start, 1)
	a := NewFrameAllocator(start, end)
	ft, err := a.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range ft.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}
}
