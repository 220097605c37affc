package trap

import (
	"testing"

	"sv39kernel/internal/proc"
	"sv39kernel/internal/sbi"
	"sv39kernel/internal/sched"
)

func TestDispatchBreakpointAdvancesSepcAndReturnsSameCtx(t *testing.T) {
	ctx := &proc.Context{Sepc: 0x1000}
	got := Dispatch(ctx, causeBreakpoint, 0)
	if got != ctx {
		t.Fatalf("expected the same Context back for a breakpoint")
	}
	if ctx.Sepc != 0x1002 {
		t.Fatalf("sepc = %#x, want %#x", ctx.Sepc, 0x1002)
	}
}

func TestDispatchSupervisorSoftwareAcknowledgesIPI(t *testing.T) {
	called := false
	old := sbi.ClearIPI
	sbi.ClearIPI = func() { called = true }
	defer func() { sbi.ClearIPI = old }()

	ctx := &proc.Context{}
	got := Dispatch(ctx, causeSupervisorSoftware, 0)
	if got != ctx {
		t.Fatalf("expected the same Context back for a software interrupt")
	}
	if !called {
		t.Fatalf("expected ClearIPI to be called")
	}
}

// An unrecognized (module, function) pair must be answered with
// ProceedTwo(0, ENOSYS), never halt the kernel.
func TestDispatchUnknownEcallIsAnsweredNotHalted(t *testing.T) {
	proc.Init(sched.NewFIFO[*proc.Thread]())

	ctx := &proc.Context{}
	ctx.SetA(0, 0xDEAD)
	ctx.SetA(1, 0xBEEF)
	got := Dispatch(ctx, causeUserEcall, 0)
	if got != ctx {
		t.Fatalf("expected ProceedTwo to return the same Context")
	}
	if got.A(1) == 0 {
		t.Fatalf("expected a nonzero error code for an unrecognized syscall")
	}
}

func TestTickIncrementsOnTimerInterrupt(t *testing.T) {
	oldSet := sbi.SetTimer
	sbi.SetTimer = func(uint64) {}
	defer func() { sbi.SetTimer = oldSet }()

	// An empty processor with nothing sleeping shuts the machine down;
	// make that terminate the test instead of hanging it.
	oldShutdown := sbi.Shutdown
	sbi.Shutdown = func() { panic("shutdown") }
	defer func() { sbi.Shutdown = oldShutdown }()

	proc.Init(sched.NewFIFO[*proc.Thread]())
	before := Tick()
	ctx := &proc.Context{}

	func() {
		defer func() { recover() }()
		Dispatch(ctx, causeSupervisorTimer, 0)
	}()

	if Tick() != before+1 {
		t.Fatalf("tick = %d, want %d", Tick(), before+1)
	}
}
