// Package trap implements the supervisor trap dispatcher: __alltraps
// saves every integer register plus sepc and sstatus into a proc.Context
// at the top of the current stack and calls Dispatch with a pointer to
// it, scause and stval; Dispatch rearms the timer, advances sepc past a
// breakpoint or ecall, routes ecalls to internal/syscall, and hands back
// whatever Context __restore should load. Nothing available touches
// RISC-V privileged state or a trap vector at all, so trap_riscv64.s is
// written directly against the privileged ISA rather than adapted from a
// pack example — see DESIGN.md.
package trap

import (
	"fmt"

	"sv39kernel/internal/memlayout"
	"sv39kernel/internal/proc"
	"sv39kernel/internal/riscvcsr"
	"sv39kernel/internal/sbi"
	"sv39kernel/internal/syscall"
)

// scause values this dispatcher recognizes. The
// interrupt bit is set for the two interrupt causes; Dispatch switches
// on the raw scause value rather than masking it off, since the two
// exception causes never appear with that bit set.
const interruptBit = 1 << 63

const (
	causeSupervisorSoftware uint64 = 1 | interruptBit
	causeSupervisorTimer    uint64 = 5 | interruptBit
	causeBreakpoint         uint64 = 3
	causeUserEcall          uint64 = 8
)

var tick uint64

// vectorAddr returns the address of __alltraps, implemented in
// trap_riscv64.s, for Init to install into stvec.
func vectorAddr() uint64

// Init installs the trap vector, enables the timer interrupt in sie, and
// arms the first timer deadline. It must run once during kernel init,
// after internal/proc's global Processor exists, and before any thread
// can be dispatched into.
//
// Handlers never explicitly clear sstatus.SIE. It is already 0 throughout
// S-mode trap handling — sret is the only instruction that derives SIE,
// from SPIE — so a second write here would be redundant, not a
// correctness gap.
func Init() {
	riscvcsr.WriteStvec(vectorAddr())
	riscvcsr.EnableTimerInterrupt()
	armTimer()
}

func armTimer() {
	sbi.SetTimer(riscvcsr.ReadTime() + memlayout.TimerInterval)
}

// Dispatch is called by __alltraps with ctx pointing at the just-saved
// Context and the scause/stval the hardware recorded for this trap. It
// returns the Context __restore should load — ctx itself unless a
// scheduling switch happened.
func Dispatch(ctx *proc.Context, scause, stval uint64) *proc.Context {
	switch scause {
	case causeSupervisorTimer:
		tick++
		armTimer()
		return proc.Global().PrepareNextThread(ctx)

	case causeBreakpoint:
		fmt.Printf("[Kernel] breakpoint at sepc=%#x\n", ctx.Sepc)
		ctx.Sepc += 2
		return ctx

	case causeUserEcall:
		ctx.Sepc += 4
		return syscall.Handle(proc.Global(), ctx)

	case causeSupervisorSoftware:
		sbi.ClearIPI()
		return ctx

	default:
		return handleFault(ctx, scause, stval)
	}
}

// handleFault handles an unexpected exception: in a user thread it kills
// that thread and lets the scheduler carry on, rather than halting the
// whole kernel. A
// fault while running kernel code has no supervisor left to recover
// into, so it still panics.
func handleFault(ctx *proc.Context, scause, stval uint64) *proc.Context {
	t := proc.Global().Current()
	if t == nil || !t.IsUser() {
		panic(fmt.Sprintf("trap: unhandled exception scause=%#x stval=%#x sepc=%#x", scause, stval, ctx.Sepc))
	}
	fmt.Printf("[Kernel] killing thread %v: unhandled exception scause=%#x stval=%#x sepc=%#x\n",
		t.Id(), scause, stval, ctx.Sepc)
	proc.Global().KillCurrentThread()
	return proc.Global().PrepareNextThread(ctx)
}

// Tick returns the number of supervisor timer interrupts handled since
// Init, for diagnostics and tests of timer-preemption behavior.
func Tick() uint64 { return tick }

// dispatchFromAsm is __alltraps's sole entry into Go code. It exists
// only so the assembly side has one fixed, unexported, easy-to-name
// symbol to CALL; it forwards straight to Dispatch.
func dispatchFromAsm(ctx *proc.Context, scause, stval uint64) *proc.Context {
	return Dispatch(ctx, scause, stval)
}
