package vm

import (
	"debug/elf"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/kernerr"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
)

// KernelLayout holds the physical-address boundaries of the kernel's own
// link-time sections. A real boot sequence reads these from symbols the
// linker script defines (an external collaborator this package never
// implements); tests and NewKernelMemorySet's default both use a small synthetic
// layout instead.
type KernelLayout struct {
	TextStart, TextEnd     addr.Physical
	RodataStart, RodataEnd addr.Physical
	DataStart, DataEnd     addr.Physical
	BssStart, BssEnd       addr.Physical
	HeapStart, HeapEnd     addr.Physical
	StackStart, StackEnd   addr.Physical
}

// kernelLayout is installed once during kernel init via SetKernelLayout.
var kernelLayout = KernelLayout{
	TextStart:   memlayout.MemoryStart,
	TextEnd:     memlayout.MemoryStart,
	RodataStart: memlayout.MemoryStart,
	RodataEnd:   memlayout.MemoryStart,
	DataStart:   memlayout.MemoryStart,
	DataEnd:     memlayout.MemoryStart,
	BssStart:    memlayout.MemoryStart,
	BssEnd:      memlayout.MemoryStart,
	HeapStart:   memlayout.MemoryStart,
	HeapEnd:     memlayout.MemoryStart + memlayout.HeapSize,
	StackStart:  memlayout.MemoryStart + memlayout.HeapSize,
	StackEnd:    memlayout.MemoryStart + memlayout.HeapSize + memlayout.KernelStackSize,
}

// SetKernelLayout installs the link-time section boundaries used by the
// next call to NewKernelMemorySet. It must be called during kernel init,
// before the first address space is built.
func SetKernelLayout(l KernelLayout) {
	kernelLayout = l
}

// tailEnd bounds the kernel's catch-all Linear segment covering the rest
// of physical memory. It defaults to memlayout.MemoryEnd but, like
// KernelLayout, is really a boot-reported value (the firmware's memory
// size) and so is overridable for tests that don't want to map a full
// real-machine's worth of pages.
var tailEnd = addr.Physical(memlayout.MemoryEnd)

// SetMemoryEnd overrides the upper bound used for the kernel's tail
// Linear segment.
func SetMemoryEnd(end addr.Physical) {
	tailEnd = end
}

// MemorySet is a Mapping plus the ordered list of Segments placed into
// it, and the frames those Segments allocated. A MemorySet owns the
// Framed pages in pages for as long as it lives.
type MemorySet struct {
	mapping  *Mapping
	segments []Segment
	pages    []FramedPage
}

// NewKernelMemorySet builds the address space every kernel thread shares
// and every user process's mapping is layered on top of: the MMIO device
// window, .text (R-X), .rodata (R--), .data (RW-), .bss (RW-), .heap
// (RW-), .stack (RW-), and the remaining physical memory through
// MEMORY_END (RW-), all Linear and never USER.
func NewKernelMemorySet(allocator *mem.FrameAllocator) (*MemorySet, error) {
	mapping, err := NewMapping(allocator)
	if err != nil {
		return nil, err
	}
	ms := &MemorySet{mapping: mapping}

	kernelFlags := mem.Readable | mem.Writable

	linear := func(start, end addr.Physical, flags mem.Flags) error {
		if end <= start {
			return nil
		}
		_, err := ms.AddSegment(Segment{
			Start: start.ToVirtual(),
			End:   end.ToVirtual(),
			Type:  Linear,
			Flags: flags,
		}, nil)
		return err
	}

	steps := []struct {
		start, end addr.Physical
		flags      mem.Flags
	}{
		{memlayout.DeviceStart, memlayout.DeviceEnd, kernelFlags},
		{kernelLayout.TextStart, kernelLayout.TextEnd, mem.Readable | mem.Executable},
		{kernelLayout.RodataStart, kernelLayout.RodataEnd, mem.Readable},
		{kernelLayout.DataStart, kernelLayout.DataEnd, kernelFlags},
		{kernelLayout.BssStart, kernelLayout.BssEnd, kernelFlags},
		{kernelLayout.HeapStart, kernelLayout.HeapEnd, kernelFlags},
		{kernelLayout.StackStart, kernelLayout.StackEnd, kernelFlags},
		{kernelLayout.StackEnd, tailEnd, kernelFlags},
	}
	for _, s := range steps {
		if err := linear(s.start, s.end, s.flags); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// FromELF builds a user process's address space: it starts from
// NewKernelMemorySet (so switching satp to the process still serves
// kernel text for trap handling) and layers a Framed segment over every
// PT_LOAD program header, copying its file bytes in and zero-filling any
// tail out to mem_size.
func FromELF(allocator *mem.FrameAllocator, file *elf.File, isUser bool) (*MemorySet, error) {
	ms, err := NewKernelMemorySet(allocator)
	if err != nil {
		return nil, err
	}

	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		flags := mem.FlagsFromELF(isUser,
			prog.Flags&elf.PF_R != 0,
			prog.Flags&elf.PF_W != 0,
			prog.Flags&elf.PF_X != 0,
		)
		seg := Segment{
			Start: addr.Virtual(prog.Vaddr),
			End:   addr.Virtual(prog.Vaddr + prog.Memsz),
			Type:  Framed,
			Flags: flags,
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, err
		}
		if _, err := ms.AddSegment(seg, data); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// AddSegment maps segment into the underlying Mapping, asserting it does
// not overlap any segment already present, then records both the segment
// and any frames the Mapping allocated for it. It returns the frames
// allocated for this call (empty for a Linear segment) so callers that
// need direct access to freshly backed pages — Thread stack placement,
// in particular — don't have to re-derive them from the VPN range.
func (ms *MemorySet) AddSegment(seg Segment, initData []byte) ([]FramedPage, error) {
	start, end := seg.PageRange()
	if ms.OverlapWith(start, end) {
		return nil, kernerr.ErrMappingConflict
	}
	pages, err := ms.mapping.Map(&seg, initData)
	if err != nil {
		return nil, err
	}
	ms.pages = append(ms.pages, pages...)
	ms.segments = append(ms.segments, seg)
	return pages, nil
}

// OverlapWith reports whether [start, end) intersects any segment
// already present, by linear scan: two VPN ranges overlap iff
// max(start_a, start_b) < min(end_a, end_b).
func (ms *MemorySet) OverlapWith(start, end addr.Vpn) bool {
	for _, seg := range ms.segments {
		segStart, segEnd := seg.PageRange()
		lo := start
		if segStart > lo {
			lo = segStart
		}
		hi := end
		if segEnd < hi {
			hi = segEnd
		}
		if lo < hi {
			return true
		}
	}
	return false
}

// Activate delegates to the underlying Mapping.
func (ms *MemorySet) Activate() {
	ms.mapping.Activate()
}

// Mapping returns the address space's underlying page-table graph.
func (ms *MemorySet) Mapping() *Mapping {
	return ms.mapping
}
