package proc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/console"
	"sv39kernel/internal/fsabi"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/vm"
)

// ThreadId is a monotonically increasing thread identifier. Equality and
// hashing of threads are defined entirely in terms of it.
type ThreadId uint64

var nextThreadId atomic.Uint64

func allocThreadId() ThreadId {
	return ThreadId(nextThreadId.Add(1) - 1)
}

// sharedKernelStack is the single stack every user thread's trap
// handling pushes its Context onto.
var sharedKernelStack = NewKernelStack(memlayout.KernelStackSize)

// Thread is one schedulable unit of execution inside a Process. Its
// saved Context is None (nil) exactly while it is the one executing —
// Prepare takes it out of the slot, Park puts it back, and parking a
// thread whose slot is already full is a bug the assertion in Park
// catches.
type Thread struct {
	id      ThreadId
	process *Process
	isUser  bool

	stackStart, stackEnd addr.Virtual
	stackPages           []vm.FramedPage

	mu  sync.Mutex
	ctx *Context

	descMu      sync.Mutex
	descriptors []fsabi.File
}

// NewThread allocates a STACK_SIZE stack in process's address space,
// builds the thread's initial Context (sp at the top of that stack,
// sepc at entryPoint, up to 8 args in a0..a7), assigns a fresh ThreadId,
// and opens descriptors [STDIN, STDOUT]. The thread is not yet
// registered with any scheduler.
func NewThread(process *Process, entryPoint uint64, args []uint64) (*Thread, error) {
	start, end, pages, err := process.AllocPageRange(memlayout.StackSize, mem.Readable|mem.Writable)
	if err != nil {
		return nil, err
	}
	t := &Thread{
		id:          allocThreadId(),
		process:     process,
		isUser:      process.IsUser(),
		stackStart:  start,
		stackEnd:    end,
		stackPages:  pages,
		descriptors: []fsabi.File{console.Stdin, console.Stdout},
	}
	t.ctx = NewContext(entryPoint, uint64(end), args, t.isUser)
	process.addThread(t)
	return t, nil
}

// Id returns this thread's identifier.
func (t *Thread) Id() ThreadId { return t.id }

// Process returns the process this thread belongs to.
func (t *Thread) Process() *Process { return t.process }

// IsUser reports whether this thread runs in U-mode.
func (t *Thread) IsUser() bool { return t.isUser }

// Descriptor returns the File bound to fd, or ok=false if fd is out of
// range or was never opened.
func (t *Thread) Descriptor(fd int) (f fsabi.File, ok bool) {
	t.descMu.Lock()
	defer t.descMu.Unlock()
	if fd < 0 || fd >= len(t.descriptors) || t.descriptors[fd] == nil {
		return nil, false
	}
	return t.descriptors[fd], true
}

// Prepare activates the thread's address space, takes its saved Context
// out of the slot (leaving it nil; re-parking before the next Prepare is
// a bug), and places the Context where __restore expects to find it:
// user threads push it onto the single shared kernel stack; kernel
// threads get it placed in their own stack just below sp.
func (t *Thread) Prepare() *Context {
	t.process.Activate()

	t.mu.Lock()
	ctx := t.ctx
	if ctx == nil {
		t.mu.Unlock()
		panic("proc: thread prepared while its context slot is already empty")
	}
	t.ctx = nil
	t.mu.Unlock()

	if t.isUser {
		return sharedKernelStack.PushContext(ctx)
	}
	return t.placeOnOwnStack(ctx)
}

// Park places ctx back into the thread's saved-context slot. The slot
// must be empty; parking an already-parked thread is a bug.
func (t *Thread) Park(ctx *Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx != nil {
		panic("proc: park of thread whose context slot is already occupied")
	}
	t.ctx = ctx
}

// clearParkedSlot empties the saved-context slot if one is present,
// without activating the thread's address space or returning its
// contents. The processor uses it before resuming or parking a thread
// that ParkCurrentThread may already have parked into its own slot: if
// the thread is immediately reselected, nothing ever calls Prepare to
// empty the slot the ordinary way, and if another thread is selected,
// PrepareNextThread parks it again with the same frame. A no-op if the slot
// is already empty, so it is safe to call unconditionally.
func (t *Thread) clearParkedSlot() {
	t.mu.Lock()
	t.ctx = nil
	t.mu.Unlock()
}

// placeOnOwnStack writes ctx just below the top of the thread's own
// stack and returns a pointer to that copy, reached through whichever
// backing frame covers that address.
func (t *Thread) placeOnOwnStack(ctx *Context) *Context {
	at := t.stackEnd - addr.Virtual(contextSize)
	vpn := addr.VpnFloor(at)
	for _, p := range t.stackPages {
		if p.Vpn == vpn {
			offset := int(uint64(at) % memlayout.PageSize)
			dst := (*Context)(unsafe.Pointer(&p.Frame.Bytes()[offset]))
			*dst = *ctx
			return dst
		}
	}
	panic("proc: thread's own stack has no page covering its context placement")
}
