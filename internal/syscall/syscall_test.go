package syscall

import (
	"testing"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/fsabi"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/proc"
	"sv39kernel/internal/sbi"
	"sv39kernel/internal/vm"
)

// withFakeArena installs a host-backed byte arena behind internal/mem's
// direct map and a small synthetic kernel layout, the same seam
// internal/vm and internal/proc's own tests use, so a real Process/Thread
// pair can be built without real physical memory.
func withFakeArena(t *testing.T, pages int) *mem.FrameAllocator {
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

	return mem.NewFrameAllocator(addr.Ppn(0), addr.Ppn(pages))
}

func newTestThread(t *testing.T) *proc.Thread {
	t.Helper()
	alloc := withFakeArena(t, 4096)
	p, err := proc.NewKernelProcess(alloc)
	if err != nil {
		t.Fatal(err)
	}
	th, err := proc.NewThread(p, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	return th
}

// withFakeConsole captures every byte fsWrite sends to STDOUT and feeds a
// fixed byte sequence (then EOF) to STDIN, the same override seam
// internal/sbi exposes for every firmware call.
func withFakeConsole(t *testing.T, in []byte) *[]byte {
	t.Helper()
	oldPut, oldGet := sbi.ConsolePutchar, sbi.ConsoleGetchar
	t.Cleanup(func() {
		sbi.ConsolePutchar = oldPut
		sbi.ConsoleGetchar = oldGet
	})

	var out []byte
	sbi.ConsolePutchar = func(c byte) { out = append(out, c) }

	pos := 0
	sbi.ConsoleGetchar = func() int {
		if pos >= len(in) {
			return -1
		}
		c := in[pos]
		pos++
		return int(c)
	}
	return &out
}

// mapUserPage adds a one-page Framed segment to th's process and copies
// data into it, returning the virtual address it starts at.
func mapUserPage(t *testing.T, th *proc.Thread, data []byte) addr.Virtual {
	t.Helper()
	start, _, _, err := th.Process().AllocPageRange(memlayout.PageSize, mem.Readable|mem.Writable)
	if err != nil {
		t.Fatal(err)
	}
	if err := copyToUser(th.Process().Mapping(), start, data); err != nil {
		t.Fatal(err)
	}
	return start
}

func TestProcessGetIdReturnsProcessId(t *testing.T) {
	th := newTestThread(t)
	res := processGetId(th)
	if res.kind != kindProceed {
		t.Fatalf("expected Proceed, got %v", res.kind)
	}
	if res.v != uint64(th.Process().Id()) {
		t.Fatalf("a0 = %d, want process id %d", res.v, th.Process().Id())
	}
}

func TestProcessExitReturnsKill(t *testing.T) {
	th := newTestThread(t)
	ctx := &proc.Context{}
	ctx.SetA(2, 7)
	res := processExit(th, ctx)
	if res.kind != kindKill {
		t.Fatalf("expected Kill, got %v", res.kind)
	}
}

func TestFsReadAndWriteMissingFd(t *testing.T) {
	th := newTestThread(t)
	ctx := &proc.Context{}
	ctx.SetA(2, 99) // no such descriptor

	if res := fsRead(th, ctx); res.kind != kindProceedTwo || res.err != errGeneric {
		t.Fatalf("fsRead on bad fd = %+v, want ProceedTwo(_, errGeneric)", res)
	}
	if res := fsWrite(th, ctx); res.kind != kindProceedTwo || res.err != errGeneric {
		t.Fatalf("fsWrite on bad fd = %+v, want ProceedTwo(_, errGeneric)", res)
	}
}

func TestFsWriteCopiesFromUserToConsole(t *testing.T) {
	th := newTestThread(t)
	out := withFakeConsole(t, nil)

	payload := []byte("hello\n")
	va := mapUserPage(t, th, payload)

	ctx := &proc.Context{}
	ctx.SetA(2, fsabi.FdStdout)
	ctx.SetA(3, uint64(va))
	ctx.SetA(4, uint64(len(payload)))

	res := fsWrite(th, ctx)
	if res.kind != kindProceedTwo || res.err != errOK || res.v != uint64(len(payload)) {
		t.Fatalf("fsWrite = %+v, want ProceedTwo(%d, ok)", res, len(payload))
	}
	if string(*out) != string(payload) {
		t.Fatalf("console got %q, want %q", *out, payload)
	}
}

func TestFsReadCopiesFromConsoleToUser(t *testing.T) {
	th := newTestThread(t)
	withFakeConsole(t, []byte("x"))

	va := mapUserPage(t, th, make([]byte, 16))

	ctx := &proc.Context{}
	ctx.SetA(2, fsabi.FdStdin)
	ctx.SetA(3, uint64(va))
	ctx.SetA(4, 16)

	res := fsRead(th, ctx)
	if res.kind != kindProceedTwo || res.err != errOK || res.v != 1 {
		t.Fatalf("fsRead = %+v, want ProceedTwo(1, ok)", res)
	}

	got, err := copyFromUser(th.Process().Mapping(), va, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 'x' {
		t.Fatalf("read byte = %q, want 'x'", got[0])
	}
}

func TestFsReadOnExhaustedConsoleParks(t *testing.T) {
	th := newTestThread(t)
	withFakeConsole(t, nil) // ConsoleGetchar always -1

	va := mapUserPage(t, th, make([]byte, 16))

	ctx := &proc.Context{}
	ctx.SetA(2, fsabi.FdStdin)
	ctx.SetA(3, uint64(va))
	ctx.SetA(4, 16)

	res := fsRead(th, ctx)
	if res.kind != kindPark || res.v != 0 {
		t.Fatalf("fsRead of an exhausted source = %+v, want Park(0)", res)
	}
}
