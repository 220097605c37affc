// Package vm builds Sv39 address spaces out of the frames handed out by
// internal/mem: Mapping owns the page-table graph, Segment describes one
// contiguous region's placement policy, and MemorySet composes a set of
// Segments sharing one Mapping.
package vm

import (
	"sync"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/riscvcsr"
)

// writeSatp and sfenceVMA are package-level seams over the privileged
// instructions that install an address space, mirroring the dmap override
// seam in internal/mem: SetActivateHooksForTesting lets host-side tests
// substitute their own no-op/recording implementations for Activate
// instead of depending on riscvcsr's host stub.
var (
	writeSatp = defaultWriteSatp
	sfenceVMA = defaultSfenceVMA
)

// satpModeSv39 is the mode field value for the Sv39 satp layout (bits
// 63-60 of the control register).
const satpModeSv39 = 8

func defaultWriteSatp(ppn addr.Ppn) {
	riscvcsr.WriteSatp(satpModeSv39<<60 | uint64(ppn))
}

func defaultSfenceVMA() {
	riscvcsr.SfenceVMA()
}

// SetActivateHooksForTesting overrides the satp-write and TLB-flush hooks
// Activate uses, returning a restore func. It lets other packages' tests
// (internal/proc) exercise Process.Activate/Mapping.Activate without
// depending on riscvcsr's host-architecture stub, the same seam
// mem.SetDirectMapForTesting provides for the frame allocator's direct
// map.
func SetActivateHooksForTesting(writeSatpFn func(addr.Ppn), sfenceVMAFn func()) (restore func()) {
	oldWriteSatp, oldSfenceVMA := writeSatp, sfenceVMA
	writeSatp, sfenceVMA = writeSatpFn, sfenceVMAFn
	return func() {
		writeSatp, sfenceVMA = oldWriteSatp, oldSfenceVMA
	}
}

// Mapping is the three-level Sv39 page-table graph for one address space.
// It owns the root table and every intermediate PageTableTracker it
// allocates while walking; those trackers are released only when the
// Mapping itself is torn down.
type Mapping struct {
	mu        sync.Mutex
	allocator *mem.FrameAllocator
	root      *mem.PageTableTracker
	tables    []*mem.PageTableTracker
}

// NewMapping allocates and zeroes a root table.
func NewMapping(allocator *mem.FrameAllocator) (*Mapping, error) {
	root, err := mem.NewPageTableTracker(allocator)
	if err != nil {
		return nil, err
	}
	return &Mapping{allocator: allocator, root: root}, nil
}

// RootPpn returns the physical page number of the root table, the value
// Activate writes into satp.
func (m *Mapping) RootPpn() addr.Ppn {
	return m.root.Ppn()
}

// FindEntry walks levels 2 through 0 using the 9-bit slices of vpn.
// Whenever an intermediate entry is empty it allocates a fresh
// PageTableTracker, writes the child's PPN with the VALID bit, and records
// the tracker for the Mapping's own lifetime. The walk is idempotent:
// repeated calls for the same vpn return a pointer to the same storage.
func (m *Mapping) FindEntry(vpn addr.Vpn) (*mem.PageTableEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := vpn.Indices()
	cur := m.root.Ppn()
	for level := 0; level < 2; level++ {
		entries := mem.EntriesAt(cur)
		e := &entries[idx[level]]
		if !e.Valid() {
			child, err := mem.NewPageTableTracker(m.allocator)
			if err != nil {
				return nil, err
			}
			*e = mem.NewPTE(child.Ppn(), mem.Valid)
			m.tables = append(m.tables, child)
		}
		cur = e.Ppn()
	}
	entries := mem.EntriesAt(cur)
	return &entries[idx[2]], nil
}

// MapOne installs a single leaf translation. It panics if the target VPN
// is already mapped rather than silently overwriting a live translation.
func (m *Mapping) MapOne(vpn addr.Vpn, ppn addr.Ppn, flags mem.Flags) error {
	e, err := m.FindEntry(vpn)
	if err != nil {
		return err
	}
	if e.Valid() {
		panic("vm: vpn already mapped")
	}
	*e = mem.NewPTE(ppn, flags|mem.Valid)
	return nil
}

// FramedPage records one frame allocated on behalf of a Framed segment,
// kept alive by whoever receives it from Map.
type FramedPage struct {
	Vpn   addr.Vpn
	Frame *mem.FrameTracker
}

// Map installs segment's translations. Linear segments derive their PPNs
// directly from the kernel offset and return no frames. Framed segments
// allocate one fresh, zeroed frame per page; when initData is non-nil its
// bytes are copied into the mapped range through the kernel's linear
// window, page by page, with any tail beyond len(initData) left zeroed by
// the allocator. Map is transactional only per page: a failure partway
// through keeps every frame already installed and returns them alongside
// the error so the caller can still account for (and later release) them.
func (m *Mapping) Map(seg *Segment, initData []byte) ([]FramedPage, error) {
	start, end := seg.PageRange()

	switch seg.Type {
	case Linear:
		for v := start; v < end; v++ {
			ppn := addr.Ppn(uint64(v) - linearPpnOffset)
			if err := m.MapOne(v, ppn, seg.Flags); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case Framed:
		var pages []FramedPage
		for i, v := 0, start; v < end; i, v = i+1, v+1 {
			frame, err := m.allocator.Alloc()
			if err != nil {
				return pages, err
			}
			if err := m.MapOne(v, frame.Ppn(), seg.Flags); err != nil {
				return pages, err
			}
			if initData != nil {
				copyPageSlice(frame.Bytes(), initData, i)
			}
			pages = append(pages, FramedPage{Vpn: v, Frame: frame})
		}
		return pages, nil
	}

	panic("vm: unknown segment map type")
}

// linearPpnOffset is the difference, in pages, between a Linear segment's
// VPN and the PPN it maps to: VA = PA + KernelMapOffset, so
// ppn = vpn - KernelMapOffset/PageSize.
const linearPpnOffset = memlayout.KernelMapOffset / memlayout.PageSize

func copyPageSlice(dst, initData []byte, pageIndex int) {
	off := pageIndex * len(dst)
	if off >= len(initData) {
		return
	}
	end := off + len(dst)
	if end > len(initData) {
		end = len(initData)
	}
	copy(dst, initData[off:end])
}

// Activate installs this Mapping as the live address space: it writes
// satp with Sv39 mode and the root PPN, then issues a full TLB flush.
func (m *Mapping) Activate() {
	writeSatp(m.root.Ppn())
	sfenceVMA()
}
