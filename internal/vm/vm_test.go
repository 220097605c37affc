package vm

import (
	"testing"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/mem"
)

// withFakeArena backs the frame range [start, start+pages) with a plain
// Go byte slice so Mapping/MemorySet tests can run without real physical
// memory, the same seam internal/mem's own tests use.
func withFakeArena(t *testing.T, start addr.Ppn, pages int) {
	t.Helper()
	arena := make([]byte, pages*4096)
	restore := mem.SetDirectMapForTesting(func(p addr.Ppn) []byte {
		off := int(p-start) * 4096
		return arena[off : off+4096]
	})
	t.Cleanup(restore)
}

func newTestAllocator(t *testing.T, pages int) *mem.FrameAllocator {
	t.Helper()
	start := addr.Ppn(0)
	withFakeArena(t, start, pages)
	return mem.NewFrameAllocator(start, start+addr.Ppn(pages))
}
