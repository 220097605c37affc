// Package proc implements threads, processes and the single process-wide
// Processor singleton that dispatches between them. Grounded on
// spicy-os/src/process/{thread,processor,kernel_stack}.rs for the exact
// state-machine semantics, with the struct/method shape of
// biscuit/src/vm/as.go and biscuit/src/fd/fd.go (mutex-guarded structs,
// an ordered descriptor slice) carried over for idiom.
package proc

import "sv39kernel/internal/riscvcsr"

// Context is the trap frame: every integer register except x0, plus
// sepc and sstatus. regs[i] holds register x(i+1), so regs[0] is ra
// (x1) and regs[30] is x31. __alltraps/__restore (outside this
// package's scope) save and load this layout verbatim.
type Context struct {
	regs    [31]uint64
	Sepc    uint64
	Sstatus uint64
}

const (
	regRA = iota // x1
	regSP        // x2
	_            // x3  gp
	_            // x4  tp
	_            // x5  t0
	_            // x6  t1
	_            // x7  t2
	_            // x8  s0/fp
	_            // x9  s1
	regA0        // x10
)

const maxSyscallArgs = 8

// sstatus bit positions this package cares about.
const (
	sstatusSPIE = 1 << 5
	sstatusSPP  = 1 << 8
)

// threadExitSentinel is the return address placed in a fresh Context's
// ra. It is a fixed, recognizable value, not a code address: no exit
// stub is mapped there, so a thread that returns from its entry point
// jumps to an address with no code behind it.
const threadExitSentinel = 0xFFFF_FFFF_DEAD_0000

// Ra returns the saved return address register.
func (c *Context) Ra() uint64 { return c.regs[regRA] }

// Sp returns the saved stack pointer register.
func (c *Context) Sp() uint64 { return c.regs[regSP] }

// SetSp overwrites the saved stack pointer register.
func (c *Context) SetSp(v uint64) { c.regs[regSP] = v }

// A returns syscall argument register a(i), for i in [0,8).
func (c *Context) A(i int) uint64 { return c.regs[regA0+i] }

// SetA overwrites syscall argument/return register a(i).
func (c *Context) SetA(i int, v uint64) { c.regs[regA0+i] = v }

// NewContext builds the initial saved state for a thread that has never
// run: sp is the top of its stack (stacks grow down), sepc is the entry
// point, ra is the exit sentinel, up to 8 args are placed in a0..a7, and
// sstatus is derived from the live register: SPP is cleared for user
// threads (so sret drops to U-mode) and set for kernel threads, SPIE is
// always set so interrupts resume enabled after sret.
func NewContext(entryPoint, sp uint64, args []uint64, isUser bool) *Context {
	c := &Context{Sepc: entryPoint}
	c.regs[regRA] = threadExitSentinel
	c.SetSp(sp)
	for i := 0; i < len(args) && i < maxSyscallArgs; i++ {
		c.SetA(i, args[i])
	}

	status := riscvcsr.ReadSstatus()
	if isUser {
		status &^= sstatusSPP
	} else {
		status |= sstatusSPP
	}
	status |= sstatusSPIE
	c.Sstatus = status
	return c
}
