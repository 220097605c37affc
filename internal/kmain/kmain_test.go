package kmain

import (
	"testing"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/proc"
	"sv39kernel/internal/sched"
	"sv39kernel/internal/vm"
)

// withFakeArena wires internal/mem's direct map to a host-backed byte
// slice and installs a small synthetic kernel layout, the same seam
// internal/vm and internal/proc's own tests use, so kmain's init helpers
// can run against real Process/Processor objects without real physical
// memory or a linker-provided section layout.
func withFakeArena(t *testing.T, pages int) {
	t.Helper()
	arena := make([]byte, pages*memlayout.PageSize)
	restore := mem.SetDirectMapForTesting(func(p addr.Ppn) []byte {
		off := int(p) * memlayout.PageSize
		return arena[off : off+memlayout.PageSize]
	})
	t.Cleanup(restore)
	t.Cleanup(func() {
		vm.SetKernelLayout(vm.KernelLayout{})
		vm.SetMemoryEnd(addr.Physical(memlayout.MemoryEnd))
	})

	base := addr.Physical(memlayout.MemoryStart)
	vm.SetKernelLayout(vm.KernelLayout{
		TextStart: base, TextEnd: base + 0x1000,
		RodataStart: base + 0x1000, RodataEnd: base + 0x2000,
		DataStart: base + 0x2000, DataEnd: base + 0x3000,
		BssStart: base + 0x3000, BssEnd: base + 0x4000,
		HeapStart: base + 0x4000, HeapEnd: base + 0x8000,
		StackStart: base + 0x8000, StackEnd: base + 0xC000,
	})
	vm.SetMemoryEnd(base + 0x10000)
	mem.Init(addr.Ppn(0), addr.Ppn(pages))
}

func TestProbeHeapDoesNotPanic(t *testing.T) {
	probeHeap()
}

func TestNewSchedulerPicksPolicy(t *testing.T) {
	if _, ok := newScheduler(false).(*sched.FIFO[*proc.Thread]); !ok {
		t.Fatalf("expected a FIFO scheduler by default")
	}
	if _, ok := newScheduler(true).(*sched.HRRN[*proc.Thread]); !ok {
		t.Fatalf("expected an HRRN scheduler when UseHRRN is set")
	}
}

// With no filesystem configured, spawnFirstThread must do nothing rather
// than panic — that is the boot path with no init program, not an error
// condition.
func TestSpawnFirstThreadWithoutFSDoesNothing(t *testing.T) {
	withFakeArena(t, 64)
	proc.Init(sched.NewFIFO[*proc.Thread]())

	spawnFirstThread(Config{})

	if proc.Global().Current() != nil {
		t.Fatalf("expected no thread to be spawned without a configured FS")
	}
}
