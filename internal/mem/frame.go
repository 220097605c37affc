package mem

import (
	"sync"
	"unsafe"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/kernerr"
	"sv39kernel/internal/kstat"
	"sv39kernel/internal/memlayout"
)

// dmap maps a physical page number to the byte slice reached through the
// kernel's direct (linear) mapping. It is a package variable, not a plain
// function, so tests can substitute a host-backed arena instead of raw
// pointer arithmetic into unmapped memory — the same seam gopher-os uses
// for its allocator tests (overriding mapFn/reserveRegionFn).
var dmap = func(p addr.Ppn) []byte {
	va := uintptr(p.Address().ToVirtual())
	return unsafe.Slice((*byte)(unsafe.Pointer(va)), memlayout.PageSize)
}

// SetDirectMapForTesting overrides the direct-map function backing this
// package, returning a restore func. It lets other packages' tests
// (internal/vm, internal/proc) exercise frame-backed code paths against a
// host-side arena instead of raw physical memory.
func SetDirectMapForTesting(f func(addr.Ppn) []byte) (restore func()) {
	old := dmap
	dmap = f
	return func() { dmap = old }
}

// FrameTracker is the unique ownership handle over one allocated physical
// frame. At most one live tracker exists per PPN; Free returns the frame
// to the allocator it came from and must be called at most once.
type FrameTracker struct {
	ppn   addr.Ppn
	owner *FrameAllocator
	freed bool
}

// Ppn returns the physical page number this tracker owns.
func (f *FrameTracker) Ppn() addr.Ppn {
	return f.ppn
}

// Address returns the physical address of the frame's first byte.
func (f *FrameTracker) Address() addr.Physical {
	return f.ppn.Address()
}

// Bytes returns the 4 KiB byte slice for this frame, reached via the
// kernel's direct mapping.
func (f *FrameTracker) Bytes() []byte {
	return dmap(f.ppn)
}

// Free returns the frame to its owning allocator. It panics if called more
// than once for the same tracker, since that would indicate a
// use-after-free bug elsewhere in the kernel.
func (f *FrameTracker) Free() {
	if f.freed {
		panic("mem: frame tracker freed twice")
	}
	f.freed = true
	f.owner.dealloc(f.ppn)
}

// PageTableTracker is a FrameTracker whose page backs a 512-entry Sv39
// page table. The page is zeroed when constructed.
type PageTableTracker struct {
	*FrameTracker
}

// Entries returns the 512 page-table-entry slots on this page.
func (t *PageTableTracker) Entries() *[512]PageTableEntry {
	return EntriesAt(t.Ppn())
}

// BytesAt returns the raw 4 KiB byte slice backing ppn via the direct
// mapping, for callers that need arbitrary page contents rather than a
// page-table view — internal/syscall's user-buffer copies, in
// particular.
func BytesAt(p addr.Ppn) []byte {
	return dmap(p)
}

// EntriesAt returns the 512 page-table-entry slots on the page at ppn,
// reached via the direct mapping. It does not imply ownership; callers
// walking an existing page table use this to view a child table whose
// lifetime is tracked elsewhere (by the owning Mapping).
func EntriesAt(p addr.Ppn) *[512]PageTableEntry {
	return (*[512]PageTableEntry)(unsafe.Pointer(&dmap(p)[0]))
}

// NewPageTableTracker allocates a zeroed frame and wraps it as a
// PageTableTracker.
func NewPageTableTracker(a *FrameAllocator) (*PageTableTracker, error) {
	ft, err := a.Alloc()
	if err != nil {
		return nil, err
	}
	return &PageTableTracker{ft}, nil
}

// FrameAllocator hands out and reclaims page-aligned physical frames from
// a fixed range using a free-region stack: alloc pops the top interval and
// returns its first page, pushing back any remainder; dealloc pushes a
// singleton interval. This trades coalescing for O(1) operations, which is
// acceptable for kernel-internal fragmentation.
type FrameAllocator struct {
	mu    sync.Mutex
	free  [][2]addr.Ppn
	total int
}

// NewFrameAllocator creates an allocator owning the half-open page range
// [start, end).
func NewFrameAllocator(start, end addr.Ppn) *FrameAllocator {
	a := &FrameAllocator{total: int(end - start)}
	if end > start {
		a.free = append(a.free, [2]addr.Ppn{start, end})
	}
	return a
}

// Alloc returns exclusive ownership of one zeroed frame, or
// kernerr.ErrOutOfMemory if the range is exhausted.
func (a *FrameAllocator) Alloc() (*FrameTracker, error) {
	a.mu.Lock()
	if len(a.free) == 0 {
		a.mu.Unlock()
		return nil, kernerr.ErrOutOfMemory
	}
	top := len(a.free) - 1
	start, end := a.free[top][0], a.free[top][1]
	a.free = a.free[:top]
	if end-start > 1 {
		a.free = append(a.free, [2]addr.Ppn{start + 1, end})
	}
	a.mu.Unlock()

	ft := &FrameTracker{ppn: start, owner: a}
	b := ft.Bytes()
	for i := range b {
		b[i] = 0
	}
	kstat.Global.FrameAllocs.Inc()
	return ft, nil
}

// dealloc returns page p to the free-region stack. It is invoked only by
// FrameTracker.Free.
func (a *FrameAllocator) dealloc(p addr.Ppn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, [2]addr.Ppn{p, p + 1})
}

// FreeCapacity returns the number of frames currently available to Alloc.
// It is intended for tests and diagnostics.
func (a *FrameAllocator) FreeCapacity() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, iv := range a.free {
		n += int(iv[1] - iv[0])
	}
	return n
}

// global is the process-wide frame allocator, brought up once during
// kernel init.
var global *FrameAllocator

// Init installs the global frame allocator over the given physical page
// range. It must be called exactly once during kernel init, before any
// other package in this tree calls Alloc.
func Init(start, end addr.Ppn) {
	global = NewFrameAllocator(start, end)
}

// Alloc allocates a frame from the global allocator.
func Alloc() (*FrameTracker, error) {
	return global.Alloc()
}

// Global returns the process-wide frame allocator instance.
func Global() *FrameAllocator {
	return global
}
