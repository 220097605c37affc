// Package syscall dispatches a user ecall's (module, function) pair to one
// of the four read/write/exit/getpid handlers and applies the result
// discipline that decides whether the trapping thread keeps running,
// parks, or is killed.
package syscall

import (
	"fmt"

	"sv39kernel/internal/kstat"
	"sv39kernel/internal/proc"
)

// Module/function numbers, stable and explicit.
const (
	moduleProcess = 0x23336666
	funcExit      = 0x99998888
	funcGetId     = 0x77776666

	moduleFS  = 0xF0114514
	funcRead  = 0x10002000
	funcWrite = 0x30004000
)

// errOK and errGeneric are the two values the user-kernel ABI defines for
// a1: 0 means success, 1 means a generic failure (bad fd, I/O error).
const (
	errOK      = 0
	errGeneric = 1
)

// errNoSys is returned in a1 for an unrecognized (module, function) pair.
// The ABI itself only names 0/1; ENOSYS is this kernel's own extension,
// distinct from the generic-failure value so a caller can in principle
// tell "no such call" from "call failed".
const errNoSys = 38

// kind identifies which of the five result shapes a handler produced.
type kind int

const (
	kindProceed kind = iota
	kindProceedTwo
	kindPark
	kindParkTwo
	kindKill
)

// result is a handler's verdict before Handle applies it to the trapping
// Context. Handlers never touch the Context or the Processor directly —
// keeping them pure values is what makes the BadSyscall/BadFd uniform
// handling below possible without every handler repeating it.
type result struct {
	kind kind
	v    uint64
	err  uint64
}

func proceed(v uint64) result         { return result{kind: kindProceed, v: v} }
func proceedTwo(v, err uint64) result { return result{kind: kindProceedTwo, v: v, err: err} }
func park(v uint64) result            { return result{kind: kindPark, v: v} }
func parkTwo(v, err uint64) result    { return result{kind: kindParkTwo, v: v, err: err} }
func kill() result                    { return result{kind: kindKill} }

// Handle dispatches the ecall described by ctx's a0 (module) and a1
// (function) registers, runs the matching handler, and applies its result
// to the Processor and the trapping Context. It returns the frame that
// should actually resume: ctx itself for Proceed/ProceedTwo, or whatever
// PrepareNextThread selects for Park/ParkTwo/Kill.
func Handle(p *proc.Processor, ctx *proc.Context) *proc.Context {
	module := ctx.A(0)
	function := ctx.A(1)

	t := p.Current()
	res := dispatch(t, module, function, ctx)
	kstat.Global.SyscallsServed.Inc()

	switch res.kind {
	case kindProceed:
		ctx.SetA(0, res.v)
		return ctx
	case kindProceedTwo:
		ctx.SetA(0, res.v)
		ctx.SetA(1, res.err)
		return ctx
	case kindPark:
		ctx.SetA(0, res.v)
		p.ParkCurrentThread(ctx)
		return p.PrepareNextThread(ctx)
	case kindParkTwo:
		ctx.SetA(0, res.v)
		ctx.SetA(1, res.err)
		p.ParkCurrentThread(ctx)
		return p.PrepareNextThread(ctx)
	case kindKill:
		p.KillCurrentThread()
		return p.PrepareNextThread(ctx)
	}
	panic("syscall: unknown result kind")
}

// dispatch routes to one of the four named handlers, or answers an
// unrecognized pair with ProceedTwo(0, ENOSYS) and a log line, rather
// than halting.
func dispatch(t *proc.Thread, module, function uint64, ctx *proc.Context) result {
	switch module {
	case moduleProcess:
		switch function {
		case funcExit:
			return processExit(t, ctx)
		case funcGetId:
			return processGetId(t)
		}
	case moduleFS:
		switch function {
		case funcRead:
			return fsRead(t, ctx)
		case funcWrite:
			return fsWrite(t, ctx)
		}
	}
	fmt.Printf("[Kernel] unknown syscall module=%#x function=%#x\n", module, function)
	return proceedTwo(0, errNoSys)
}
