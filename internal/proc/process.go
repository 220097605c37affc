package proc

import (
	"debug/elf"
	"sync"
	"sync/atomic"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/vm"
)

// ProcessId is a monotonically increasing process identifier, starting
// at 0 for the first process.
type ProcessId uint64

var nextProcessId atomic.Uint64

func allocProcessId() ProcessId {
	return ProcessId(nextProcessId.Add(1) - 1)
}

// Process owns one address space and is shared by every Thread running
// inside it. Segment additions (alloc_page_range, ELF loading) hold the
// reader-writer lock exclusively; reads (Activate) take it shared.
type Process struct {
	id     ProcessId
	isUser bool

	mu      sync.RWMutex
	memSet  *vm.MemorySet
	nextVA  addr.Virtual
	threads []*Thread
}

// NewKernelProcess builds a process with is_user=false whose address
// space is the kernel's own MemorySet.
func NewKernelProcess(allocator *mem.FrameAllocator) (*Process, error) {
	ms, err := vm.NewKernelMemorySet(allocator)
	if err != nil {
		return nil, err
	}
	return &Process{
		id:     allocProcessId(),
		isUser: false,
		memSet: ms,
		nextVA: memlayout.UserBase,
	}, nil
}

// NewProcessFromELF builds a process whose MemorySet is constructed from
// an ELF image's PT_LOAD segments, layered over the kernel's own mapping.
func NewProcessFromELF(allocator *mem.FrameAllocator, file *elf.File, isUser bool) (*Process, error) {
	ms, err := vm.FromELF(allocator, file, isUser)
	if err != nil {
		return nil, err
	}
	return &Process{
		id:     allocProcessId(),
		isUser: isUser,
		memSet: ms,
		nextVA: memlayout.UserBase,
	}, nil
}

// Id returns this process's identifier.
func (p *Process) Id() ProcessId { return p.id }

// IsUser reports whether threads in this process run in U-mode.
func (p *Process) IsUser() bool { return p.isUser }

// Activate installs this process's address space as the live one.
func (p *Process) Activate() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.memSet.Activate()
}

// Mapping returns the page table backing this process's address space,
// for callers (internal/syscall's user-buffer copies) that need to
// translate a virtual address a thread passed as a syscall argument.
func (p *Process) Mapping() *vm.Mapping {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.memSet.Mapping()
}

// AllocPageRange rounds size up to a whole page, then adds a Framed
// segment of that many pages at the next available virtual-address
// window starting at UserBase, stepping past any window that would
// overlap an existing segment. It returns the caller's exact requested
// [start, start+size) range — not the page-rounded end — plus the
// frames backing it.
func (p *Process) AllocPageRange(size uint64, flags mem.Flags) (addr.Virtual, addr.Virtual, []vm.FramedPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rounded := roundUpPage(size)
	if p.isUser {
		flags |= mem.User
	}

	for {
		start := p.nextVA
		end := start + addr.Virtual(rounded)
		startVpn, endVpn := addr.VpnFloor(start), addr.VpnCeil(end)
		if !p.memSet.OverlapWith(startVpn, endVpn) {
			pages, err := p.memSet.AddSegment(vm.Segment{
				Start: start,
				End:   end,
				Type:  vm.Framed,
				Flags: flags,
			}, nil)
			if err != nil {
				return 0, 0, nil, err
			}
			p.nextVA = end
			return start, start + addr.Virtual(size), pages, nil
		}
		p.nextVA = end
	}
}

func roundUpPage(size uint64) uint64 {
	n := (size + memlayout.PageSize - 1) / memlayout.PageSize
	return n * memlayout.PageSize
}

// addThread records t as belonging to this process. Called only from
// NewThread.
func (p *Process) addThread(t *Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, t)
}
