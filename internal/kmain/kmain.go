// Package kmain implements the kernel init sequence: heap bring-up, the
// frame allocator, the kernel address space, driver/filesystem init, the
// first thread, arming the timer, and starting the scheduler. Grounded on
// gopher-os-gopher-os/kernel/kmain.go's Kmain(args) entry-point pattern,
// since biscuit's own boot path lives inside its modified Go runtime
// rather than in an ordinary source file.
package kmain

import (
	"bytes"
	"debug/elf"
	"fmt"

	"sv39kernel/internal/addr"
	"sv39kernel/internal/fsabi"
	"sv39kernel/internal/kstat"
	"sv39kernel/internal/mem"
	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/proc"
	"sv39kernel/internal/sbi"
	"sv39kernel/internal/sched"
	"sv39kernel/internal/trap"
	"sv39kernel/internal/vm"
)

// Config carries the values only the firmware/linker-provided boot
// environment can supply: the kernel's own link-time section boundaries,
// the firmware-reported top of physical memory, which scheduling policy
// to run, the mounted filesystem root, and the path of the first user
// program to load. FS and InitPath are both optional — with either one
// unset no user ELF is loaded and no thread is spawned.
type Config struct {
	HartID    uint64
	Layout    vm.KernelLayout
	MemoryEnd addr.Physical
	UseHRRN   bool
	FS        fsabi.Root
	InitPath  string
}

// heapProbeCount is the number of integers the boot-time heap smoke test
// allocates and verifies.
const heapProbeCount = 10_000

// Kmain is the kernel's single entry point, reached after boot assembly
// has set up a stack and identity+high-half mapping sufficient to call
// into Go code. It never returns: control
// passes to Processor.Run, which transfers to __restore and from there
// only ever comes back through a trap.
//
//go:noinline
func Kmain(cfg Config) {
	fmt.Printf("[Kernel] booting on hart %v\n", cfg.HartID)

	probeHeap()

	mem.Init(addr.PpnFloor(addr.Physical(memlayout.MemoryStart)), addr.PpnCeil(cfg.MemoryEnd))

	vm.SetKernelLayout(cfg.Layout)
	vm.SetMemoryEnd(cfg.MemoryEnd)

	kernelProcess, err := proc.NewKernelProcess(mem.Global())
	if err != nil {
		panic(fmt.Sprintf("kmain: building kernel address space: %v", err))
	}
	kernelProcess.Activate()

	scheduler := newScheduler(cfg.UseHRRN)
	proc.Init(scheduler)

	spawnFirstThread(cfg)
	if proc.Global().Current() == nil {
		fmt.Println("[Kernel] no thread to run, shutting down")
		sbi.Shutdown()
	}

	trap.Init()

	fmt.Println("[Kernel] starting scheduler")
	proc.Global().Run()
}

// probeHeap allocates and verifies heapProbeCount integers, to catch a
// misconfigured heap before any frame-allocator or address-space code
// runs (both depend on a working allocator). Heap bring-up itself — the
// allocator backing make/new — is an external collaborator; this only
// exercises it.
func probeHeap() {
	probe := make([]int, heapProbeCount)
	for i := range probe {
		probe[i] = i * i
	}
	for i, v := range probe {
		if v != i*i {
			panic("kmain: heap smoke test failed, allocator is broken")
		}
	}
	fmt.Printf("[Kernel] heap smoke test passed (%v ints)\n", heapProbeCount)
}

func newScheduler(useHRRN bool) sched.Scheduler[*proc.Thread] {
	if useHRRN {
		return sched.NewHRRN[*proc.Thread]()
	}
	return sched.NewFIFO[*proc.Thread]()
}

// spawnFirstThread loads cfg.FS's InitPath as an ELF image and spawns its
// entry point as the first user thread, or — when no filesystem is
// configured — spawns nothing, leaving an empty processor that Kmain
// shuts down instead of starting Run.
func spawnFirstThread(cfg Config) {
	if cfg.FS == nil || cfg.InitPath == "" {
		fmt.Println("[Kernel] no init program configured, nothing to run")
		return
	}

	inode, err := cfg.FS.Lookup(cfg.InitPath)
	if err != nil {
		panic(fmt.Sprintf("kmain: looking up %q: %v", cfg.InitPath, err))
	}
	data, err := inode.ReadAll()
	if err != nil {
		panic(fmt.Sprintf("kmain: reading %q: %v", cfg.InitPath, err))
	}
	file, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("kmain: parsing ELF %q: %v", cfg.InitPath, err))
	}

	process, err := proc.NewProcessFromELF(mem.Global(), file, true)
	if err != nil {
		panic(fmt.Sprintf("kmain: building address space for %q: %v", cfg.InitPath, err))
	}
	thread, err := proc.NewThread(process, file.Entry, nil)
	if err != nil {
		panic(fmt.Sprintf("kmain: spawning first thread for %q: %v", cfg.InitPath, err))
	}
	proc.Global().AddThread(thread)
	fmt.Printf("[Kernel] process %v running %q\n", process.Id(), cfg.InitPath)
}

// Stats renders the optional counters kstat tracks, for a diagnostic
// shutdown log. It is "" unless kstat's compile-time flag is enabled.
func Stats() string {
	return kstat.String(kstat.Global)
}
